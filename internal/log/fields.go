package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldError        = "error"
	FieldPartition    = "partition"
	FieldCounterparty = "counterparty"
	FieldAmount       = "amount"
	FieldIntent       = "intent"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentBackend  = "backend"
	ComponentAMQP     = "amqp"
	ComponentNotifier = "notifier"
)
