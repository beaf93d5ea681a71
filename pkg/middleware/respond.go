package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/logger"
)

// writeFailure answers with a failed common.Response carrying message
func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(common.Fail[any](message, nil)); err != nil {
		logger.Warn("Failed to write failure response: %v", err)
	}
}
