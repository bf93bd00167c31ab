package metrics

// Slug identifies a checkout metric.
type Slug string

const (
	SlugCheckouts          Slug = "checkouts"
	SlugSucceededCheckouts Slug = "succeeded_checkouts"
	SlugFailedCheckouts    Slug = "failed_checkouts"
	SlugRevenue            Slug = "revenue"
	SlugAverageRevenue     Slug = "average_revenue"
)

// Type tells clients how to format a metric value.
type Type string

const (
	TypeScalar   Type = "scalar"
	TypeCurrency Type = "currency"
)

// Metric describes one entry of the registry.
type Metric struct {
	Slug        Slug   `json:"slug"`
	DisplayName string `json:"displayName"`
	Type        Type   `json:"type"`
}

// Registry lists every metric returned by a query, in display order.
var Registry = []Metric{
	{Slug: SlugCheckouts, DisplayName: "Checkouts", Type: TypeScalar},
	{Slug: SlugSucceededCheckouts, DisplayName: "Succeeded Checkouts", Type: TypeScalar},
	{Slug: SlugFailedCheckouts, DisplayName: "Failed Checkouts", Type: TypeScalar},
	{Slug: SlugRevenue, DisplayName: "Revenue", Type: TypeCurrency},
	{Slug: SlugAverageRevenue, DisplayName: "Average Revenue", Type: TypeCurrency},
}

// Lookup returns the registry entry for slug.
func Lookup(slug Slug) (Metric, bool) {
	for _, m := range Registry {
		if m.Slug == slug {
			return m, true
		}
	}
	return Metric{}, false
}
