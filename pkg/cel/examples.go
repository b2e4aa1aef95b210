package cel

var FilterExpressionExamples = map[string]string{
	"only_messages": `action == "messageSent"`,
	"drop_quiet":    `action != "quiet"`,
	"known_actions": `action in ["messageSent", "userJoin"]`,
	"planet":        `"System/planet" in payload && payload["System/planet"] == "Earth"`,
	"author_prefix": `action == "messageSent" && string(payload.author).startsWith("bot-")`,
	"source":        `source == "chat-export"`,
	"joins_on_mars": `action == "userJoin" && payload["System/planet"] == "Mars"`,
	"long_messages": `action == "messageSent" && size(string(payload.messageSent)) > 200`,
	"numeric_field": `has(payload.count) && payload.count > 10`,
	"everything":    `true`,
}
