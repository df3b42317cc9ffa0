package types

// Printer is one entry of the printer listing.
type Printer struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// PrinterList is the body returned by GET /printers/. A missing or null
// printers key leaves Printers nil.
type PrinterList struct {
	Printers []Printer `json:"printers"`
}
