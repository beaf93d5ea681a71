package main

import "github.com/bitechdev/DataProvider/pkg/entity"

// Customer is served under /customers
type Customer struct {
	entity.Base
	Name  string  `db:"Name" json:"name"`
	Email *string `db:"Email" json:"email,omitempty"`
	Phone string  `db:"Phone" json:"phone"`
	Age   int64   `db:"Age" json:"age"`
}

// Product is served under /products
type Product struct {
	entity.Base
	Code        string  `db:"Code" json:"code"`
	Description string  `db:"Description" json:"description"`
	Price       float64 `db:"Price" json:"price"`
	Stock       int64   `db:"Stock" json:"stock"`
}
