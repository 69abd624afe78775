package common

// Position is a caller-identified logical exposure aggregating one or more
// orders. The core tracks only the structural association; net exposure
// arithmetic belongs to a position-accounting collaborator.
type Position struct {
	Id       string   `json:"id"`
	OrderIds []string `json:"order_ids"`
}

func (p *Position) Contains(orderId string) bool {
	for _, id := range p.OrderIds {
		if id == orderId {
			return true
		}
	}
	return false
}
