package datatable

// DefaultTableDefinitions returns the built-in store admin tables.
func DefaultTableDefinitions() []TableDefinition {
	return []TableDefinition{
		{
			Code:           "customers",
			Title:          "Customers",
			TitleLocalized: map[string]string{"es": "Clientes"},
			Description:    "Customer directory with segment and lifetime spend",
			Columns: []Column{
				{Key: "name", Header: "Customer", HeaderLocalized: map[string]string{"es": "Cliente"}, Sortable: true},
				{Key: "email", Header: "Email", Sortable: true},
				{Key: "segment", Header: "Segment", Sortable: true, Formatter: BadgeFormatter{
					Variants: map[string]string{"Active": "default", "New": "secondary"},
					Default:  "outline",
				}},
				{Key: "orders", Header: "Orders", Sortable: true, Formatter: NumberFormatter{}},
				{Key: "spent", Header: "Total Spent", Sortable: true, Formatter: CurrencyFormatter{Currency: "USD"}},
				{Key: "lastOrder", Header: "Last Order", Sortable: true, Formatter: DateFormatter{}},
			},
			SearchFields: []string{"name", "email"},
			EmptyMessage: "No customers found in database",
			Schema:       recordSchema([]string{"name", "email"}, map[string]string{"orders": "number", "spent": "number"}),
			Menu:         MenuEntry{Label: "Customers", Route: "/tables/customers", Icon: "users", Position: 20},
		},
		{
			Code:           "inventory",
			Title:          "Inventory",
			TitleLocalized: map[string]string{"es": "Inventario"},
			Description:    "Products with stock levels and availability",
			Columns: []Column{
				{Key: "name", Header: "Product Details", Sortable: true},
				{Key: "sku", Header: "SKU", Sortable: true},
				{Key: "category", Header: "Category", Sortable: true},
				{Key: "stock", Header: "Stock Status", Sortable: true, Formatter: NumberFormatter{}},
				{Key: "status", Header: "Availability", Sortable: true, Formatter: BadgeFormatter{
					Variants: map[string]string{"in-stock": "default", "low-stock": "secondary", "out-of-stock": "destructive"},
					Labels:   map[string]string{"in-stock": "In Stock", "low-stock": "Low Stock", "out-of-stock": "Out of Stock"},
				}},
				{Key: "price", Header: "Pricing", Sortable: true, Formatter: CurrencyFormatter{Currency: "USD"}},
			},
			SearchFields: []string{"name", "sku", "category"},
			EmptyMessage: "No products found in inventory",
			Schema:       recordSchema([]string{"name", "sku"}, map[string]string{"stock": "number", "price": "number"}),
			Menu:         MenuEntry{Label: "Inventory", Route: "/tables/inventory", Icon: "package", Position: 10},
		},
		{
			Code:           "transactions",
			Title:          "Transactions",
			TitleLocalized: map[string]string{"es": "Transacciones"},
			Description:    "Order history with payment method and status",
			Columns: []Column{
				{Key: "id", Header: "Order ID", Sortable: true},
				{Key: "customer", Header: "Customer", Sortable: true},
				{Key: "method", Header: "Payment Method", Sortable: true},
				{Key: "amount", Header: "Amount", Sortable: true, Formatter: CurrencyFormatter{Currency: "USD"}},
				{Key: "status", Header: "Status", Sortable: true, Formatter: BadgeFormatter{
					Variants: map[string]string{"completed": "default", "processing": "secondary", "refunded": "destructive"},
					Default:  "outline",
				}},
				{Key: "date", Header: "Date", Sortable: true, Formatter: DateFormatter{}},
			},
			SearchFields: []string{"id", "customer", "method", "items"},
			EmptyMessage: "No transactions found in history",
			Schema:       recordSchema([]string{"id", "amount"}, map[string]string{"id": "string", "amount": "number"}),
			Menu:         MenuEntry{Label: "Transactions", Route: "/tables/transactions", Icon: "receipt", Position: 30},
		},
	}
}

func recordSchema(required []string, types map[string]string) map[string]any {
	properties := make(map[string]any, len(types))
	for key, typ := range types {
		properties[key] = map[string]any{"type": typ}
	}
	req := make([]any, len(required))
	for i, key := range required {
		req[i] = key
	}
	return map[string]any{
		"type":       "object",
		"required":   req,
		"properties": properties,
	}
}
