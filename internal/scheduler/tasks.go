package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowUpDue = "conversation.follow_up.due"

const TaskTicketRedelivery = "escalation.ticket.redeliver"

type FollowUpDuePayload struct {
	ContactID   string `json:"contactId"`
	Temperature string `json:"temperature"`
}

type TicketRedeliveryPayload struct {
	TicketID string `json:"ticketId"`
}

func NewFollowUpDueTask(payload FollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}

func NewTicketRedeliveryTask(payload TicketRedeliveryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTicketRedelivery, data), nil
}

func ParseTicketRedeliveryPayload(task *asynq.Task) (TicketRedeliveryPayload, error) {
	var payload TicketRedeliveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TicketRedeliveryPayload{}, err
	}
	return payload, nil
}
