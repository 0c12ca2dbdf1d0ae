package types

// Task is a high-level unit of work submitted to the orchestrator.
type Task struct {
	ID              string   `json:"task_id" yaml:"task_id"`
	Description     string   `json:"description" yaml:"description"`
	InitialAgentID  string   `json:"initial_agent_id" yaml:"initial_agent_id"`
	InitialMetadata Metadata `json:"initial_metadata,omitempty" yaml:"initial_metadata,omitempty"`
}

// SeedMessage builds the first message of a run. task_id is authoritative over
// any value carried in InitialMetadata.
func (t Task) SeedMessage() Message {
	msg := NewMessage(SenderUser, t.InitialAgentID, t.Description)
	for k, v := range t.InitialMetadata {
		msg.Metadata[k] = v
	}
	msg.Metadata[MetaTaskID] = t.ID
	return msg
}

// TaskResult summarizes one Run or Resume call.
type TaskResult struct {
	TaskID            string    `json:"task_id"`
	Completed         bool      `json:"completed"`
	MessagesProcessed int       `json:"messages_processed"`
	History           []Message `json:"history"`
}
