package chat

// Shared broadcast topics and per-user queue destinations. System, global and
// presence traffic goes to topics; private and project traffic is addressed
// to individual users by their email.
const (
	TopicSystem   = "message/system"
	TopicGlobal   = "message/global"
	TopicPresence = "message/online"

	DestPrivate = "queue/message/private"
	DestProject = "queue/message/project"
)

// Stats metric names registered by the chat components.
const (
	MetricOnlineUsers      = "OnlineUsers"
	MetricActiveSessions   = "ActiveSessions"
	MetricMessagesRouted   = "MessagesRouted"
	MetricFanoutDeliveries = "FanoutDeliveries"
)
