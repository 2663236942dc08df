package analytics

// MetricCount is one label with its value, the shape breakdowns return.
type MetricCount struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// ExpandedMetric is a breakdown row with engagement numbers.
type ExpandedMetric struct {
	Name      string  `json:"name"`
	Pageviews float64 `json:"pageviews"`
	Visitors  float64 `json:"visitors"`
	Visits    float64 `json:"visits"`
	Bounces   float64 `json:"bounces"`
	TotalTime float64 `json:"totaltime"`
}

type FunnelStepResult struct {
	Type      string  `json:"type"`
	Value     string  `json:"value"`
	Visitors  float64 `json:"visitors"`
	Previous  float64 `json:"previous"`
	Dropped   float64 `json:"dropped"`
	Dropoff   float64 `json:"dropoff"`
	Remaining float64 `json:"remaining"`
}

type JourneyPath struct {
	Items []string `json:"items"`
	Count float64  `json:"count"`
}

type AttributionResult struct {
	Referrer    []MetricCount `json:"referrer"`
	PaidAds     []MetricCount `json:"paidAds"`
	UTMSource   []MetricCount `json:"utm_source"`
	UTMMedium   []MetricCount `json:"utm_medium"`
	UTMCampaign []MetricCount `json:"utm_campaign"`
	UTMContent  []MetricCount `json:"utm_content"`
	UTMTerm     []MetricCount `json:"utm_term"`
	Total       float64       `json:"total"`
}

type RevenuePoint struct {
	X string  `json:"x"`
	T string  `json:"t"`
	Y float64 `json:"y"`
}

type RevenueTotal struct {
	Sum         float64 `json:"sum"`
	Count       float64 `json:"count"`
	UniqueCount float64 `json:"unique_count"`
	Average     float64 `json:"average"`
}

type RevenueResult struct {
	Chart   []RevenuePoint `json:"chart"`
	Country []MetricCount  `json:"country"`
	Total   RevenueTotal   `json:"total"`
}

type WebsiteStats struct {
	Pageviews  float64       `json:"pageviews"`
	Visitors   float64       `json:"visitors"`
	Visits     float64       `json:"visits"`
	Bounces    float64       `json:"bounces"`
	TotalTime  float64       `json:"totaltime"`
	Comparison *WebsiteStats `json:"comparison,omitempty"`
}

// SeriesPoint is one time bucket, labelled as timeframe.BucketLayout.
type SeriesPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

type PageviewStats struct {
	Pageviews []SeriesPoint `json:"pageviews"`
	Sessions  []SeriesPoint `json:"sessions"`
}
