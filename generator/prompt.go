package generator

import "strings"

// DefaultModel backs the storyteller agent unless overridden.
const DefaultModel = "gpt-3.5-turbo-1106"

const (
	agentName        = "Fairy tale teller"
	agentDescription = "You are a writer of fairy tales for children. " +
		"You can write a short fairy tale on any topic given by the user. " +
		"When asked about a fairy tale, you always respond with only the content of the fairy tale. " +
		"When asked about the title, you always respond with only the title of the fairy tale you wrote. " +
		"Do not use quotation marks for the title."

	contentPromptPrefix = "Write a fairy tale on the topic: "
	titlePrompt         = "Give me the title of this fairy tale. Do not use quotation marks."
)

// DefaultProfile is the storyteller persona.
func DefaultProfile() AgentProfile {
	return AgentProfile{
		Name:        agentName,
		Description: agentDescription,
		Model:       DefaultModel,
	}
}

// Prompts is the two-message protocol driven through each session: a content
// request built around the topic, then the title request sent as-is.
type Prompts struct {
	ContentPrefix string
	Title         string
}

// DefaultPrompts returns the fairy-tale protocol.
func DefaultPrompts() Prompts {
	return Prompts{ContentPrefix: contentPromptPrefix, Title: titlePrompt}
}

// Content builds the first message for a topic.
func (p Prompts) Content(topic string) string {
	return p.ContentPrefix + topic + "."
}

// SplitTopics parses a comma-separated topic list; blank segments are
// dropped so trailing commas are harmless.
func SplitTopics(s string) []string {
	parts := strings.Split(s, ",")
	topics := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
