package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/kb-chatbot/internal/chatbot/store"
	"github.com/kart-io/kb-chatbot/pkg/llm"
)

// MaxHistoryTurns 参与组装的历史消息条数上限。
const MaxHistoryTurns = 4

// Persona 机器人名称与所属公司。
type Persona struct {
	Name    string
	Company string
}

// NoContextReply 检索无结果时的固定回复。
func (p Persona) NoContextReply() string {
	return fmt.Sprintf("I don't have information about that in my knowledge base. Please contact %s support for more help.", p.Company)
}

// ApologyReply 处理失败时的固定回复。
func (p Persona) ApologyReply() string {
	return fmt.Sprintf("I'm sorry, I encountered an error processing your question. Please try again or contact %s support.", p.Company)
}

const systemPromptTemplate = `You are %s, a helpful customer service assistant for %s.

Your role is to answer questions based ONLY on the provided context documents. Here are your guidelines:

1. Always be helpful, friendly, and professional
2. Only answer questions using information from the context provided below
3. If you cannot find relevant information in the context, politely say you don't have that information
4. Keep responses concise but complete
5. If asked about topics outside your knowledge base, redirect users to contact support

CONTEXT DOCUMENTS:
%s

USER QUESTION: %s

Please provide a helpful response based on the context above.`

// BuildContext 按检索排名拼接文档，标注为 Document N。
func BuildContext(docs []store.SearchResult) string {
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("Document %d:\n%s", i+1, doc.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BuildSystemPrompt 构建包含人设、回答规则与上下文文档的系统提示词。
func BuildSystemPrompt(persona Persona, docs []store.SearchResult, question string) string {
	return fmt.Sprintf(systemPromptTemplate, persona.Name, persona.Company, BuildContext(docs), question)
}

// AssembleMessages 组装 [system] + 最近 MaxHistoryTurns 条历史 + [user]。
func AssembleMessages(systemPrompt string, history []llm.Message, question string) []llm.Message {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}

// Sources 按排名返回每个文档的 source，仅在字段缺失时为 Document N。
func Sources(docs []store.SearchResult) []string {
	sources := make([]string, len(docs))
	for i, doc := range docs {
		if src, ok := doc.LookupSource(); ok {
			sources[i] = src
			continue
		}
		sources[i] = fmt.Sprintf("Document %d", i+1)
	}
	return sources
}
