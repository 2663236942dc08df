package referrers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/testsupport"
)

func TestHostCondition(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	cond := HostCondition("referrer_domain", SocialHosts)

	tests := []struct {
		domain string
		want   bool
	}{
		{"t.co", true},
		{"x.com", true},
		{"X.com", true},
		{"mobile.x.com", true},
		{"l.fb.com", true},
		{"microsoft.com", false},
		{"dropbox.com", false},
		{"netflix.com", false},
		{"t.co.evil.io", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			var matched int
			err := db.Raw("SELECT CASE WHEN "+cond+" THEN 1 ELSE 0 END FROM (SELECT ? AS referrer_domain) source", tt.domain).
				Scan(&matched).Error
			require.NoError(t, err)
			assert.Equal(t, tt.want, matched == 1)
		})
	}
}

func TestHostConditionText(t *testing.T) {
	assert.Equal(t,
		"(lower(d) in ('t.co', 'x.com') or lower(d) like '%.t.co' or lower(d) like '%.x.com')",
		HostCondition("d", []string{"t.co", "x.com"}))
	assert.Equal(t, "1 = 0", HostCondition("d", nil))
}

func TestShortHostsAreNotSubstringEntries(t *testing.T) {
	for _, h := range SocialHosts {
		assert.NotContains(t, SocialDomains, h)
	}
	assert.NotContains(t, EmailDomains, "yahoo.mail")
}

func TestAdPlatformsPriority(t *testing.T) {
	names := make([]string, len(AdPlatforms))
	for i, p := range AdPlatforms {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Google", "Facebook", "Microsoft", "TikTok", "LinkedIn", "Twitter"}, names)
}
