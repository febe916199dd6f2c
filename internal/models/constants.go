package models

// SystemPrompt frames the completion service for knowledge-base answering.
const SystemPrompt = "あなたは論理的推論と知識検索を担当する専門アシスタントです。正確で簡潔な回答を提供してください。"

// AnswerPromptTemplate embeds the assembled context and the user query.
const AnswerPromptTemplate = `あなたは日本の建築・法律に関する専門的な知識ベースアシスタントです。
提供されたコンテキストを使用して、質問に正確かつ簡潔に答えてください。

コンテキスト:
%s

質問:
%s

回答は日本語で、事実に基づいて正確に答えてください。`

// RefinePromptTemplate rewrites a draft answer into natural polite Japanese.
const RefinePromptTemplate = `以下のテキストを自然な敬語のビジネス日本語に書き直してください。
不自然な直訳を避け、読みやすく、顧客向けのトーンに整えてください。
専門用語はそのまま保持してください。

原文:
%s

改善された日本語:`

// ErrorFragmentPrefix prefixes the single inline fragment emitted when the
// completion service fails mid-stream.
const ErrorFragmentPrefix = "エラーが発生しました: "

// Context tags for assembled retrieval hits.
const (
	KnowledgeTagTemplate    = "[出典 %d: %s - ページ %s]\n%s"
	ConversationTagTemplate = "[会話 (%s) セッション:%s]\n%s"
)
