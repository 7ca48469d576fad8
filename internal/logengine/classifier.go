package logengine

import (
	"path"
	"strings"

	"github.com/mssola/useragent"

	"github.com/netxfw/gunlog/internal/utils/iputil"
)

// StatusClass buckets an HTTP status code.
// StatusClass 为 HTTP 状态码分类。
type StatusClass string

const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// StatusClassOf maps a status code to its class. Codes outside 2xx-5xx map to other.
// StatusClassOf 将状态码映射为分类，2xx-5xx 以外返回 other。
func StatusClassOf(code int) StatusClass {
	switch code / 100 {
	case 2:
		return Status2xx
	case 3:
		return Status3xx
	case 4:
		return Status4xx
	case 5:
		return Status5xx
	}
	return StatusOther
}

// DefaultBotSignatures is the user-agent substring list used when none is configured.
// DefaultBotSignatures 为未配置时使用的爬虫 UA 特征列表。
var DefaultBotSignatures = []string{
	"bot", "crawler", "spider", "slurp", "googlebot", "bingbot", "yandexbot",
	"baiduspider", "duckduckbot", "facebookexternalhit", "ahrefsbot", "semrushbot",
	"mj12bot", "dotbot", "petalbot", "applebot", "curl", "wget", "python-requests",
	"go-http-client", "headlesschrome", "uptimerobot",
}

// ClassifiedRecord is a parsed record plus derived tags.
// ClassifiedRecord 为附带派生标签的解析记录。
type ClassifiedRecord struct {
	Kind   Kind
	Access *AccessRecord
	Error  *ErrorRecord

	IsBot          bool
	StatusClass    StatusClass
	ReferrerDomain string
	ReferrerType   ReferrerType
	SearchEngine   string
	SearchQuery    string
	Browser        string
	OS             string
	Device         string
	ContentType    string
	InternalIP     bool
}

// ClientIP returns the client address of either record kind.
func (r ClassifiedRecord) ClientIP() string {
	switch {
	case r.Access != nil:
		return r.Access.ClientIP
	case r.Error != nil:
		return r.Error.ClientIP
	}
	return ""
}

// ClassifierOptions configures a Classifier.
// ClassifierOptions 为 Classifier 的配置。
type ClassifierOptions struct {
	BotSignatures []string
}

type agentInfo struct {
	browser string
	os      string
	device  string
}

const agentCacheLimit = 4096

// Classifier derives tags from parsed records. It is deterministic and does
// no I/O. It memoizes user-agent parsing and must not be shared across goroutines.
// Classifier 从解析记录派生标签，结果确定且无 I/O，不可跨 goroutine 共享。
type Classifier struct {
	signatures []string
	agents     map[string]agentInfo
}

// NewClassifier creates a Classifier. Signatures are matched case-insensitively.
// NewClassifier 创建 Classifier，特征匹配不区分大小写。
func NewClassifier(opts ClassifierOptions) *Classifier {
	sigs := make([]string, 0, len(opts.BotSignatures))
	for _, s := range opts.BotSignatures {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			sigs = append(sigs, s)
		}
	}
	return &Classifier{
		signatures: sigs,
		agents:     make(map[string]agentInfo),
	}
}

// IsBot reports whether ua contains any configured signature. Empty ua is never a bot.
// IsBot 判断 ua 是否包含任一爬虫特征，空 ua 不视为爬虫。
func (c *Classifier) IsBot(ua string) bool {
	if ua == "" {
		return false
	}
	lower := strings.ToLower(ua)
	for _, sig := range c.signatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Classify derives all tags for rec.
// Classify 为记录派生全部标签。
func (c *Classifier) Classify(rec ParsedRecord) ClassifiedRecord {
	out := ClassifiedRecord{
		Kind:        rec.Kind,
		Access:      rec.Access,
		Error:       rec.Error,
		StatusClass: StatusOther,
	}

	if rec.Error != nil {
		out.InternalIP = rec.Error.ClientIP != "" && iputil.IsInternal(rec.Error.ClientIP)
		return out
	}
	a := rec.Access
	if a == nil {
		return out
	}

	out.IsBot = c.IsBot(a.UserAgent)
	out.StatusClass = StatusClassOf(a.Status)
	out.ReferrerDomain = ReferrerDomain(a.Referrer)
	out.ReferrerType = ClassifyReferrer(a.Referrer)
	out.SearchEngine, out.SearchQuery = SearchEngineOf(a.Referrer)
	out.ContentType = ContentTypeOf(a.Path)
	out.InternalIP = iputil.IsInternal(a.ClientIP)

	info := c.agent(a.UserAgent)
	out.Browser, out.OS, out.Device = info.browser, info.os, info.device
	if out.IsBot {
		out.Device = "Bot"
	}
	return out
}

func (c *Classifier) agent(ua string) agentInfo {
	if ua == "" {
		return agentInfo{browser: "Unknown", os: "Unknown", device: "Unknown"}
	}
	if info, ok := c.agents[ua]; ok {
		return info
	}

	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	info := agentInfo{browser: browser, os: parsed.OS(), device: "Desktop"}
	if info.browser == "" {
		info.browser = "Unknown"
	}
	if info.os == "" {
		info.os = "Unknown"
	}
	if parsed.Mobile() {
		info.device = "Mobile"
	} else if parsed.Bot() {
		info.device = "Bot"
	}

	if len(c.agents) >= agentCacheLimit {
		clear(c.agents)
	}
	c.agents[ua] = info
	return info
}

var contentTypes = map[string]string{
	".html": "Page", ".htm": "Page", ".php": "Page", ".asp": "Page", ".aspx": "Page", ".jsp": "Page",
	".jpg": "Image", ".jpeg": "Image", ".png": "Image", ".gif": "Image", ".svg": "Image",
	".webp": "Image", ".ico": "Image", ".bmp": "Image", ".avif": "Image",
	".css": "Style",
	".js": "Script", ".mjs": "Script",
	".pdf": "Document", ".doc": "Document", ".docx": "Document", ".xls": "Document",
	".xlsx": "Document", ".ppt": "Document", ".pptx": "Document", ".txt": "Document",
	".mp3": "Media", ".mp4": "Media", ".webm": "Media", ".ogg": "Media", ".wav": "Media",
	".avi": "Media", ".mov": "Media",
	".zip": "Download", ".gz": "Download", ".tar": "Download", ".rar": "Download",
	".7z": "Download", ".exe": "Download", ".dmg": "Download", ".msi": "Download",
	".json": "Data", ".xml": "Data", ".csv": "Data", ".rss": "Data",
	".woff": "Font", ".woff2": "Font", ".ttf": "Font", ".otf": "Font", ".eot": "Font",
}

// ContentTypeOf categorizes a request path by extension. Paths without an
// extension are pages.
// ContentTypeOf 根据扩展名对请求路径分类，无扩展名视为页面。
func ContentTypeOf(p string) string {
	if p == "" || p == "UNKNOWN" {
		return "Other"
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return "Page"
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "Other"
}
