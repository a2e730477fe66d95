package collector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const noSummary = "No summary available"

// plainText 去掉 HTML 标签并压缩空白；不含标签的文本只做空白压缩
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes 按 rune 截断，超长时追加省略号
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "..."
}

// hostOf 用订阅源地址的域名作为来源标签
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
