package telegram

// User facing texts. All of them are already valid MarkdownV2.
const (
	welcomeMessage = `🤖 *Welcome to AI Chat Bot\!*

I'm here to help you with any questions or conversations\. Just send me a message, and I'll respond using AI\.

*Available commands:*
• /start \- Show this welcome message
• /help \- Show help information
• /clear \- Clear our conversation history
• /status \- Check bot status

Let's start chatting\! 🚀`

	helpMessage = `📚 *Help and Commands*

*Main commands:*
• Just send me any message to start a conversation
• /start \- Welcome message
• /help \- This help message
• /clear \- Clear conversation history
• /status \- Bot status

*How to use:*
1\. Send me any question or message
2\. I'll respond using AI
3\. Our conversation will be remembered for context
4\. Use /clear or the button under a reply to start fresh

*Tips:*
• Be specific in your questions
• Long conversations are automatically trimmed
• Idle conversations are forgotten after a day

Need anything else? Just ask\! 😊`

	clearedMessage  = "🗑️ *Conversation history cleared\\!*\n\nStart fresh with a new message\\."
	textOnlyMessage = "📝 *Text only*\n\nI can only process text messages at the moment\\. Please send your question as text\\!"

	errorMessage        = "❌ *Error*\n\nSorry, an error occurred while processing your message\\. Please try again later\\!"
	rateLimitMessage    = "⏳ *Too many requests*\n\nThe AI service is busy right now\\. Please try again in a minute\\."
	badRequestMessage   = "❌ *Error*\n\nThe AI service rejected this request\\. Try rephrasing your message or use /clear\\."
	unauthorizedMessage = "🔑 *Service unavailable*\n\nThe bot could not authenticate with the AI service\\. Please let the bot owner know\\."
)

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = `You are a helpful AI assistant. You can help with various topics including programming, general knowledge, writing, and more. Be concise but informative in your responses.

When formatting text, use these markers only:
- **text** for bold
- __text__ for italic
- ~~text~~ for strikethrough
- ` + "`text`" + ` for inline code
- ` + "```text```" + ` for code blocks
- [text](url) for links

Do not escape any characters yourself.`
