// Package referrers holds the keyword lists traffic channels are classified
// by. Domain entries are matched as case-insensitive substrings of the
// referrer domain or URL query, so "google" covers google.com, google.co.uk
// and so on. Hosts too short to match safely that way are listed separately
// and match only as the whole host or a subdomain of it.
package referrers

import (
	"fmt"
	"strings"
)

// Channel is a derived traffic source label.
type Channel string

const (
	Direct          Channel = "direct"
	PaidAds         Channel = "paidAds"
	Referral        Channel = "referral"
	Affiliate       Channel = "affiliate"
	SMS             Channel = "sms"
	OrganicSearch   Channel = "organicSearch"
	PaidSearch      Channel = "paidSearch"
	Social          Channel = "social"
	Email           Channel = "email"
	OrganicShopping Channel = "organicShopping"
	PaidShopping    Channel = "paidShopping"
	OrganicVideo    Channel = "organicVideo"
	PaidVideo       Channel = "paidVideo"
)

var SearchDomains = []string{
	"google", "bing", "duckduckgo", "yahoo", "baidu", "yandex", "ecosia",
	"kagi", "naver", "seznam", "qwant", "startpage", "brave", "perplexity",
	"chatgpt", "sogou", "ask.com", "aol",
}

var SocialDomains = []string{
	"facebook", "instagram", "twitter", "linkedin", "pinterest", "reddit",
	"tiktok", "snapchat", "threads.net", "bsky.app", "mastodon", "discord",
	"whatsapp", "telegram", "news.ycombinator.com", "producthunt", "quora",
	"tumblr", "weibo",
}

// SocialHosts are social networks whose domains are substrings of unrelated
// ones: t.co is inside microsoft.com, x.com inside dropbox.com.
var SocialHosts = []string{"t.co", "x.com", "fb.com", "t.me", "vk.com", "lnkd.in"}

// Webmail on a search engine's domain (mail.google.com, mail.yahoo.com)
// classifies as search, which is checked first.
var EmailDomains = []string{
	"gmail", "mail.", "outlook", "proton", "zoho", "fastmail", "mailchimp",
	"substack",
}

var ShoppingDomains = []string{
	"amazon", "ebay", "etsy", "shopify", "walmart", "aliexpress", "alibaba",
	"mercadolibre", "rakuten", "zalando",
}

var VideoDomains = []string{
	"youtube", "youtu.be", "twitch", "vimeo", "dailymotion", "wistia",
}

// PaidAdParams are URL query fragments left by ad platforms' auto-tagging.
var PaidAdParams = []string{
	"gclid=", "gbraid=", "wbraid=", "dclid=", "fbclid=", "msclkid=", "ttclid=",
	"li_fat_id=", "twclid=", "epik=", "scid=", "rdt_cid=",
}

// PaidMediums mark a utm_medium as paid traffic.
var PaidMediums = []string{"cp", "ppc", "retargeting", "paid"}

// ReferralMediums are utm_medium values that mark explicit referral traffic.
var ReferralMediums = []string{"referral", "app", "link"}

// AdPlatform maps a click-id column to the platform that sets it.
type AdPlatform struct {
	Column string
	Name   string
}

// AdPlatforms is ordered by priority: when a row carries several click ids
// the first non-empty one wins.
var AdPlatforms = []AdPlatform{
	{Column: "gclid", Name: "Google"},
	{Column: "fbclid", Name: "Facebook"},
	{Column: "msclkid", Name: "Microsoft"},
	{Column: "ttclid", Name: "TikTok"},
	{Column: "li_fat_id", Name: "LinkedIn"},
	{Column: "twclid", Name: "Twitter"},
}

// HostCondition renders a SQL condition that holds when column is one of
// hosts or a subdomain of one. It only uses lower, in and like, which both
// backends share. hosts are constants without quotes or LIKE wildcards.
func HostCondition(column string, hosts []string) string {
	if len(hosts) == 0 {
		return "1 = 0"
	}
	col := fmt.Sprintf("lower(%s)", column)
	quoted := make([]string, len(hosts))
	conds := make([]string, 0, len(hosts)+1)
	for i, h := range hosts {
		quoted[i] = "'" + h + "'"
	}
	conds = append(conds, fmt.Sprintf("%s in (%s)", col, strings.Join(quoted, ", ")))
	for _, h := range hosts {
		conds = append(conds, fmt.Sprintf("%s like '%%.%s'", col, h))
	}
	return "(" + strings.Join(conds, " or ") + ")"
}
