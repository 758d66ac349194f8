package config

// Message templates use Telegram's legacy Markdown dialect.

const DefaultWelcome = `🤖 *REI ASSISTANT - VIDEO DOWNLOADER*

👋 Hi! I am Rei Assistant, a multi-platform video downloader bot.

📥 *Supported:*
• YouTube & YouTube Shorts
• TikTok
• Instagram Reels
• Facebook
• Twitter / X

⚡ *How to use:*
Just send me a video link!

⚠️ *Note:*
• 100% free
• Max size: 50MB
• No watermark (when available)`

const DefaultHelp = `📖 *REI ASSISTANT - Help*

*⚡ How to use:*
1. Send a video link (YouTube, TikTok, Instagram, ...)
2. Wait while it downloads
3. The video is sent back automatically

*🌐 Supported platforms:*
• YouTube & YouTube Shorts
• TikTok
• Instagram Reels & IGTV
• Facebook & Facebook Watch
• Twitter / X video

*⚙️ Limits:*
• Max file size: 50MB (Telegram limit)
• Platform is detected automatically

*⚠️ Please:*
• Don't spam downloads
• Personal use only
• Make sure you may save the content

*📊 Personal stats:* send /stats`

const DefaultAds = `⚡ *Download complete!*

🔥 *Support Rei Assistant:*
- Follow: @your_channel

⚠️ Don't forget to rate this bot 5⭐`
