package service

import "github.com/okhv/sms-relay/internal/model"

// StatusPresenter maps a record's raw status fields onto the small
// human-readable enumeration exposed to users.
type StatusPresenter struct {
	labels     map[int]string
	errorLabel string
}

func NewStatusPresenter(labels map[int]string, errorLabel string) *StatusPresenter {
	return &StatusPresenter{
		labels:     labels,
		errorLabel: errorLabel,
	}
}

// Code collapses the record into one status code, first match wins:
// delivered, permanently failed, sent to recipient, dispatched to the
// gateway, not yet dispatched.
func (p *StatusPresenter) Code(m *model.Message) int {
	switch {
	case m.DeliveredStatus == model.Delivered:
		return 1
	case m.DeliveredStatus == model.DeliveryFailed:
		return 2
	case m.SentStatus == model.SentToRecipient:
		return 3
	case m.Dispatched():
		return 4
	default:
		return 0
	}
}

// HumanStatus returns the configured label for the record's status
// code, or the error label for an unmapped code.
func (p *StatusPresenter) HumanStatus(m *model.Message) string {
	if label, ok := p.labels[p.Code(m)]; ok {
		return label
	}
	return p.errorLabel
}
