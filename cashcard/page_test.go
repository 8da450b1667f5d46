package cashcard

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageDefaults(t *testing.T) {
	p, err := ParsePage(url.Values{})
	require.NoError(t, err)
	require.Equal(t, 0, p.Number)
	require.Equal(t, 20, p.Size)
	require.Equal(t, Sort{Field: "amount", Desc: true}, p.Sort)
	require.Equal(t, "amount DESC", p.orderBy())
}

func TestParsePage(t *testing.T) {
	q, err := url.ParseQuery("page=2&size=5&sort=id,asc")
	require.NoError(t, err)

	p, err := ParsePage(q)
	require.NoError(t, err)
	require.Equal(t, 2, p.Number)
	require.Equal(t, 5, p.Size)
	require.Equal(t, Sort{Field: "id", Desc: false}, p.Sort)
	require.Equal(t, "id ASC", p.orderBy())
	require.Equal(t, 10, p.offset())
}

func TestParsePageSortWithoutDirection(t *testing.T) {
	p, err := ParsePage(url.Values{"sort": []string{"amount"}})
	require.NoError(t, err)
	require.Equal(t, Sort{Field: "amount", Desc: false}, p.Sort)
}

func TestParsePageCapsSize(t *testing.T) {
	p, err := ParsePage(url.Values{"size": []string{"5000"}})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, p.Size)
}

func TestParsePageRejectsBadInput(t *testing.T) {
	for name, raw := range map[string]string{
		"negative page":      "page=-1",
		"non-numeric page":   "page=x",
		"zero size":          "size=0",
		"non-numeric size":   "size=x",
		"unknown sort field": "sort=owner,desc",
		"bad sort direction": "sort=amount,sideways",
		"trailing garbage":   "sort=amount,desc,extra",
	} {
		t.Run(name, func(t *testing.T) {
			q, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = ParsePage(q)
			require.Error(t, err)
		})
	}
}
