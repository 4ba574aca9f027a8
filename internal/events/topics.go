package events

// Topic constants for domain events emitted by the POS.
const (
	TopicOrderCreated  = "order.created"
	TopicOrderPaid     = "order.paid"
	TopicOrderCanceled = "order.canceled"
	TopicDraftClaimed  = "draft.claimed"
	TopicDraftReleased = "draft.released"
)
