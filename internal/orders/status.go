package orders

type Status string

const (
	StatusNew        Status = "NEW"
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusDelivering Status = "DELIVERING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusNew:        {StatusPending: true, StatusCancelled: true},
	StatusPending:    {StatusPaid: true, StatusCancelled: true},
	StatusPaid:       {StatusDelivering: true, StatusCancelled: true},
	StatusDelivering: {StatusCompleted: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusNew, StatusPending, StatusPaid, StatusDelivering, StatusCompleted, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Editable reports whether the item collection may still be mutated.
func (s Status) Editable() bool {
	return s == StatusNew || s == StatusPending
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
