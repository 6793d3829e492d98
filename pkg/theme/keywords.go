package theme

// keywordMap keys keyword lists by the platform/section facet they signal.
// Matches against a platform entry weigh 1.0; matches against a section
// entry weigh 0.7.
var keywordMap = map[string][]string{
	"android": {"android", "gradle", "apk", "kotlin", "java"},
	"ios":     {"ios", "swift", "xcode", "cocoapods"},
	"web":     {"javascript", "widget", "web", "iframe"},
	"admin":   {"admin", "administrator", "tag", "tags", "tagging", "label"},
	"agent":   {"agent", "operator"},
	"supervisor": {"supervisor"},
	"api":     {"api", "swagger", "rest", "webhook", "integration"},
}

// domainUserInterfaceWords signal an "operator workplace" style query,
// bonused against the chatcenter_user_docs domain.
var domainUserInterfaceWords = []string{"workplace", "console", "interface", "dashboard"}
