package dto

// NextNumberRequest is the query of the next-number preview.
type NextNumberRequest struct {
	Format string `form:"format"`
}

// NextNumberResponse carries a number that would be assigned now.
// It is not reserved.
type NextNumberResponse struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Format        string `json:"format"`
}

// ValidateNumberRequest checks a number without storing anything.
// InvoiceID excludes an existing invoice from the duplicate check.
type ValidateNumberRequest struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Format        string `json:"format"`
	InvoiceID     string `json:"invoiceId"`
}

// ValidateNumberResponse is returned when the number is acceptable.
type ValidateNumberResponse struct {
	Valid bool `json:"valid"`
}
