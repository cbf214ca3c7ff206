package moderation

// Sentinel はモデルが不適切と判定した場合に返す文字列。
const Sentinel = "INAPPROPRIATE_CONTENT"

const moderatorPreamble = "\nYou are a strict AI moderator.\n"

const enhanceRules = `- Enhance the following message to make it more fluent, expressive, and natural sounding, while keeping its original tone and meaning. 
- Do not add unrelated content. Just make it smoother and more thoughtful.
- Only enhance messages that are clear, respectful .
`

const commonRules = `- Do NOT rewrite or reword greetings (like "hi", "hello", or "hey"), short messages, or unclear text.
- Do not change informal or friendly compliments unless they are clearly inappropriate.
- Do NOT explain, justify, or provide polite alternatives.
- Do not respond with "INAPPROPRIATE_CONTENT" unless the message is abusive, hateful, or offensive.
`

// enhancePrompt は文章を整形させるプロンプトを組み立てる。
func enhancePrompt(text string) string {
	return moderatorPreamble + enhanceRules + commonRules + "\n" + text + "\nOutput:\n"
}

// checkPrompt は文章を判定させるプロンプトを組み立てる。整形の指示は含まない。
func checkPrompt(text string) string {
	return moderatorPreamble + commonRules + "\n" + text + "\nOutput:\n"
}
