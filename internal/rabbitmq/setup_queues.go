package rabbitmq

// QueueConfig очередь и ключ маршрутизации, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetActionQueues очереди, которые получают события журнала действий.
func GetActionQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "photobot.audit", RoutingKey: "#"},
		{QueueName: "photobot.photos", RoutingKey: "photo_uploaded"},
		{QueueName: "photobot.subscriptions", RoutingKey: "subscription_changed"},
	}
}
