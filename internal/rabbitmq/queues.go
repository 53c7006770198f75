package rabbitmq

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// EmailQueue receives every event published with the email routing key.
const EmailQueue = "notifications.email"

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: EmailQueue, RoutingKey: "email"},
	}
}
