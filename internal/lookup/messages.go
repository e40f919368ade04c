package lookup

// Fixed user-facing texts. All are Markdown.
const (
	msgWelcome = "👋 *Welcome!*\n\n" +
		"Send a *full name* (or part of it), an *ID* or a *national ID* and I will look it up.\n\n" +
		"📊 /stats shows totals per category, 📈 /chart draws them."
	msgSearchPrompt = "🔎 Send a *name* (or part of it), an *ID* or a *national ID* to search."
	msgEmptyQuery   = "📝 Please send some text to search."
	msgNotFound     = "❌ *Nothing found.*\n\nCheck the spelling and try again."
	msgRateLimited  = "⏳ Too many requests. Please wait a moment and try again."

	msgSearchFailed = "⚠️ Sorry, the search failed. Please try again later."
	msgStatsFailed  = "⚠️ Sorry, statistics are unavailable right now. Please try again later."
	msgChartFailed  = "⚠️ Sorry, the chart could not be drawn. Please try again later."

	msgEmptySheet = "❌ *The sheet is empty.*"
	msgNoChart    = "❌ *No data for the chart.*"

	chartCaption = "📈 Distribution by category"
)
