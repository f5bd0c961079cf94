package handlers

const welcomeText = `📈 Welcome to Stock Watcher Bot!
Hello %s! 👋
I'll help you monitor your favorite stocks and track their performance against the 52-week moving average.

Available Commands:
/add <symbol> - Add stock to your watchlist
/remove <symbol> - Remove stock from your watchlist
/list - Show your watchlist
/price <symbol> - Show current price for a stock
/check - Check all watchlist stocks against 52-week MA
/help - Show this help message

Example:
/add AAPL - Add Apple stock to your watchlist
/price TSLA - Get Tesla's current price info

Start by adding some stocks to your watchlist! 🚀`

const helpText = `🤖 Stock Watcher Bot Commands:

Watchlist Management:
/add <symbol> - Add stock to your watchlist
/remove <symbol> - Remove stock from watchlist
/list - Show your current watchlist

Price Information:
/price <symbol> - Get current price and 52-week MA info
/check - Analyze all your watchlist stocks

Other:
/help - Show this help message
/start - Restart the bot

Tips:
• Use official stock symbols (e.g., AAPL for Apple)
• The bot tracks 52-week moving average for technical analysis
• You can add multiple stocks to monitor them easily

Example Usage:
/add AAPL GOOGL MSFT - Add multiple stocks
/price TSLA - Check Tesla's current price
/check - Analyze all your stocks at once`

const emptyListText = `📝 Your watchlist is empty.

Use /add <symbol> to add stocks!

Example: /add AAPL GOOGL MSFT`

const unknownText = `🤔 I didn't understand that command.

Type /help to see available commands, or just send a stock symbol like 'AAPL' to get its price!`
