package declarative

// AgentDefinition is a declarative scripted agent specification.
// This struct is designed to be deserialized from YAML or JSON files.
type AgentDefinition struct {
	// Identity
	ID          string `yaml:"id" json:"id"`
	Role        string `yaml:"role" json:"role"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Tool calls run in order before any reply is rendered.
	ToolCalls []ToolCallDefinition `yaml:"tool_calls,omitempty" json:"tool_calls,omitempty"`

	// Replies produced for every handled message.
	Replies []ReplyDefinition `yaml:"replies,omitempty" json:"replies,omitempty"`

	// MaxReplies bounds how many messages the agent answers. Zero means unbounded.
	// 计数只在进程内有效，不进入 checkpoint；Resume 后重新计数。
	MaxReplies int `yaml:"max_replies,omitempty" json:"max_replies,omitempty"`

	// Metadata
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Reply conditions.
const (
	WhenAlways      = "always"
	WhenToolSuccess = "tool_success"
	WhenToolFailure = "tool_failure"
)

// SenderRecipient addresses a reply back to the sender of the handled message.
const SenderRecipient = "$sender"

// ReplyDefinition describes one outgoing message.
// Content and string metadata values accept {{variable}} placeholders.
type ReplyDefinition struct {
	To       string         `yaml:"to,omitempty" json:"to,omitempty"` // empty or "$sender" replies to the sender
	Content  string         `yaml:"content" json:"content"`
	When     string         `yaml:"when,omitempty" json:"when,omitempty"` // "always", "tool_success", "tool_failure"
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// ToolCallDefinition describes a tool invocation routed through the approval arbiter.
type ToolCallDefinition struct {
	Tool        string         `yaml:"tool" json:"tool"`
	Args        map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"` // approval request description
}
