package logengine

import (
	"net"
	"net/url"
	"strings"
)

// ReferrerType is the coarse origin of a visit.
// ReferrerType 表示访问来源的大类。
type ReferrerType string

const (
	ReferrerDirect      ReferrerType = "Direct"
	ReferrerSearch      ReferrerType = "Search"
	ReferrerSocial      ReferrerType = "Social"
	ReferrerAdvertising ReferrerType = "Advertising"
	ReferrerEmail       ReferrerType = "Email"
	ReferrerReferral    ReferrerType = "Referral"
)

// searchEngines maps a domain fragment to the engine name and its query parameter.
var searchEngines = []struct {
	fragment string
	name     string
	param    string
}{
	{"google.", "Google", "q"},
	{"bing.com", "Bing", "q"},
	{"yahoo.", "Yahoo", "p"},
	{"yandex.", "Yandex", "text"},
	{"baidu.com", "Baidu", "wd"},
	{"duckduckgo.com", "DuckDuckGo", "q"},
	{"ecosia.org", "Ecosia", "q"},
}

var socialDomains = []string{
	"facebook.com", "fb.com", "twitter.com", "t.co", "x.com", "instagram.com",
	"linkedin.com", "lnkd.in", "pinterest.com", "reddit.com", "tiktok.com",
	"youtube.com", "youtu.be", "tumblr.com", "vk.com", "weibo.com", "mastodon.social",
}

var adDomains = []string{
	"doubleclick.net", "googleadservices.com", "googlesyndication.com",
	"adservice.google.", "ads.yahoo.com", "adnxs.com", "criteo.com", "taboola.com", "outbrain.com",
}

// ReferrerDomain returns the lower-cased host of an absolute http(s) referrer,
// without port. Malformed or absent referrers yield "".
// ReferrerDomain 返回 http(s) 来源的主机名（小写、去端口），无效时返回空串。
func ReferrerDomain(ref string) string {
	u := parseReferrer(ref)
	if u == nil {
		return ""
	}
	return hostOf(u)
}

func parseReferrer(ref string) *url.URL {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "-" {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return nil
	}
	return u
}

func hostOf(u *url.URL) string {
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// SearchEngineOf returns the search engine and query of a referrer, if any.
// SearchEngineOf 返回来源对应的搜索引擎及搜索词。
func SearchEngineOf(ref string) (engine, query string) {
	u := parseReferrer(ref)
	if u == nil {
		return "", ""
	}
	host := hostOf(u)
	for _, se := range searchEngines {
		if strings.Contains(host, se.fragment) {
			return se.name, strings.TrimSpace(u.Query().Get(se.param))
		}
	}
	return "", ""
}

// ClassifyReferrer assigns a ReferrerType. Domain lists are checked first, then
// the utm_source / utm_medium campaign parameters.
// ClassifyReferrer 判断来源类型，先匹配域名列表，再检查 utm 参数。
func ClassifyReferrer(ref string) ReferrerType {
	if strings.TrimSpace(ref) == "" || ref == "-" {
		return ReferrerDirect
	}
	u := parseReferrer(ref)
	if u == nil {
		return ReferrerReferral
	}
	host := hostOf(u)

	if matchesAny(host, socialDomains) {
		return ReferrerSocial
	}
	if matchesAny(host, adDomains) {
		return ReferrerAdvertising
	}
	for _, se := range searchEngines {
		if strings.Contains(host, se.fragment) {
			return ReferrerSearch
		}
	}

	q := u.Query()
	source := strings.ToLower(q.Get("utm_source") + " " + q.Get("utm_medium"))
	switch {
	case containsAny(source, "email", "newsletter", "mail"):
		return ReferrerEmail
	case containsAny(source, "facebook", "twitter", "linkedin", "instagram", "social"):
		return ReferrerSocial
	case containsAny(source, "cpc", "ppc", "ad", "campaign", "banner"):
		return ReferrerAdvertising
	}
	return ReferrerReferral
}

// matchesAny reports whether host equals or is a subdomain of one of domains.
// Entries ending in "." match any TLD.
func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if strings.HasSuffix(d, ".") {
			if strings.HasPrefix(host, d) || strings.Contains(host, "."+d) {
				return true
			}
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
