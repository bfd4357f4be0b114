package chat

// Inbound event names accepted by the Router. The names and payload
// field names below are the wire protocol; clients depend on them.
const (
	EventNewUser        = "new_user"
	EventSendMessage    = "send_message"
	EventTyping         = "typing"
	EventPrivateMessage = "private_message"
	EventJoinRoom       = "join_room"
	EventRoomMessage    = "room_message"
	EventSendFile       = "send_file"
	EventMessageRead    = "message_read"
	EventAddReaction    = "add_reaction"
	EventGetMessages    = "get_messages"
)

// Outbound event names emitted by the Router.
const (
	EventOnlineUsers           = "online_users"
	EventReceiveMessage        = "receive_message"
	EventReceivePrivateMessage = "receive_private_message"
	EventRoomNotification      = "room_notification"
	EventReceiveRoomMessage    = "receive_room_message"
	EventReceiveFile           = "receive_file"
	EventMessageReadAck        = "message_read_ack"
	EventReactionUpdate        = "reaction_update"
	EventMessagesBatch         = "messages_batch"
)

// SendMessagePayload is the body of a send_message event. The id is
// client-assigned and may be a string or a number, hence the loose type.
type SendMessagePayload struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	ID        any    `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PrivateMessagePayload is the body of a private_message event.
type PrivateMessagePayload struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message"`
}

// RoomMessagePayload is the body of a room_message event.
type RoomMessagePayload struct {
	Room    string `json:"room" validate:"required"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// AddReactionPayload is the body of an add_reaction event.
type AddReactionPayload struct {
	ID       any    `json:"id" validate:"required"`
	Reaction string `json:"reaction" validate:"required"`
}

// GetMessagesPayload is the body of a get_messages event. Offset and
// Limit default to 0 and 20 when absent; History clamps invalid values.
type GetMessagesPayload struct {
	Room   string `json:"room"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// FileSharePayload carries only the fields the server reads; the full
// payload is forwarded to recipients verbatim.
type FileSharePayload struct {
	FileName string `json:"fileName"`
	Sender   string `json:"sender"`
}

// PrivateMessageEvent is the receive_private_message payload.
type PrivateMessageEvent struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// RoomMessageEvent is the receive_room_message payload.
type RoomMessageEvent struct {
	ID        any    `json:"id,omitempty"`
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ReactionEvent is the reaction_update payload.
type ReactionEvent struct {
	ID       any    `json:"id"`
	Reaction string `json:"reaction"`
}

// Ack is the synchronous delivery acknowledgment returned to the sender
// of a send_message event. It only ever reports success.
type Ack struct {
	Status string `json:"status"`
	ID     any    `json:"id,omitempty"`
}

// AckStatusDelivered is the only status an Ack carries.
const AckStatusDelivered = "delivered"
