package declarative

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent"
	"github.com/BaSui01/devcrew/types"
)

// Metadata keys written on scripted replies.
const (
	MetaToolSuccess = "tool_success"
	MetaReplyCount  = "reply_count"
)

// templateVarRegexp 匹配模板变量 {{variable}} 或 {{ variable }}
var templateVarRegexp = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.-]*)\s*\}\}`)

// ScriptedAgent replays a definition: it runs the configured tool calls and
// renders the configured replies for every message it handles.
type ScriptedAgent struct {
	def    AgentDefinition
	caller agent.ToolCaller
	logger *zap.Logger

	mu      sync.Mutex
	handled int
}

var _ agent.Agent = (*ScriptedAgent)(nil)

func (a *ScriptedAgent) ID() string   { return a.def.ID }
func (a *ScriptedAgent) Role() string { return a.def.Role }

// Definition returns a copy of the backing definition.
func (a *ScriptedAgent) Definition() AgentDefinition { return a.def }

// Handled reports how many messages produced replies so far.
func (a *ScriptedAgent) Handled() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handled
}

// Handle runs the tool calls, then renders every reply whose condition holds.
// Once MaxReplies is reached the agent stays silent.
func (a *ScriptedAgent) Handle(ctx context.Context, msg types.Message) ([]types.Message, error) {
	a.mu.Lock()
	if a.def.MaxReplies > 0 && a.handled >= a.def.MaxReplies {
		a.mu.Unlock()
		a.logger.Debug("reply budget exhausted",
			zap.String("agent_id", a.def.ID),
			zap.Int("max_replies", a.def.MaxReplies))
		return nil, nil
	}
	a.handled++
	count := a.handled
	a.mu.Unlock()

	vars := messageVars(msg)
	vars["agent_id"] = a.def.ID
	vars["role"] = a.def.Role
	vars[MetaReplyCount] = strconv.Itoa(count)

	allOK := true
	for _, call := range a.def.ToolCalls {
		if a.caller == nil {
			return nil, fmt.Errorf("agent %s: tool call %q without a tool caller", a.def.ID, call.Tool)
		}
		args := renderArgs(call.Args, vars)
		var req *types.ApprovalRequest
		if call.Description != "" {
			req = &types.ApprovalRequest{
				Action:      call.Tool,
				Description: replaceTemplateVars(call.Description, vars),
				Metadata:    types.Metadata{types.MetaArguments: args, types.MetaCaller: a.def.ID},
			}
		}
		res, err := a.caller.ExecuteToolWithApproval(ctx, call.Tool, args, a.def.ID, req)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("scripted tool call finished",
			zap.String("agent_id", a.def.ID),
			zap.String("tool", call.Tool),
			zap.Bool("success", res.Success))
		allOK = allOK && res.Success
		addToolVars(vars, call.Tool, res)
	}

	out := make([]types.Message, 0, len(a.def.Replies))
	for _, reply := range a.def.Replies {
		if !replyApplies(reply.When, allOK) {
			continue
		}
		to := reply.To
		if to == "" || to == SenderRecipient {
			to = msg.Sender
		}
		m := types.NewMessage(a.def.ID, to, replaceTemplateVars(reply.Content, vars))
		for k, v := range reply.Metadata {
			if s, ok := v.(string); ok {
				v = replaceTemplateVars(s, vars)
			}
			m.Metadata[k] = v
		}
		if len(a.def.ToolCalls) > 0 {
			m.Metadata[MetaToolSuccess] = allOK
		}
		out = append(out, m)
	}
	return out, nil
}

func replyApplies(when string, toolsOK bool) bool {
	switch when {
	case "", WhenAlways:
		return true
	case WhenToolSuccess:
		return toolsOK
	case WhenToolFailure:
		return !toolsOK
	default:
		return false
	}
}

// messageVars exposes the handled message to templates.
func messageVars(msg types.Message) map[string]string {
	vars := map[string]string{
		"sender":    msg.Sender,
		"recipient": msg.Recipient,
		"content":   msg.Content,
	}
	if id, ok := msg.Metadata.String(types.MetaTaskID); ok {
		vars["task_id"] = id
	}
	for k, v := range msg.Metadata {
		vars["meta."+k] = stringify(v)
	}
	return vars
}

func addToolVars(vars map[string]string, tool string, res types.ToolResult) {
	prefix := "tool." + tool + "."
	vars[prefix+"success"] = strconv.FormatBool(res.Success)
	vars[prefix+"output"] = stringify(res.Output)
	vars[prefix+"error"] = res.Error
}

func renderArgs(args map[string]any, vars map[string]string) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			v = replaceTemplateVars(s, vars)
		}
		out[k] = v
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// replaceTemplateVars 替换 {{name}} 占位符，未知变量保留原样
func replaceTemplateVars(text string, vars map[string]string) string {
	if text == "" || len(vars) == 0 {
		return text
	}
	return templateVarRegexp.ReplaceAllStringFunc(text, func(match string) string {
		submatch := templateVarRegexp.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if val, ok := vars[submatch[1]]; ok {
			return val
		}
		return match
	})
}
