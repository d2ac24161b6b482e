package bunq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestListMonetaryAccounts_NormalizesVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/11/monetary-account", r.URL.Path)
		_, _ = w.Write([]byte(`{"Response":[
			{"MonetaryAccountBank":{"id":1,"status":"ACTIVE","description":"Hoofdrekening",
				"balance":{"value":"250.75","currency":"EUR"},
				"alias":[{"type":"EMAIL","value":"a@b.nl"},{"type":"IBAN","value":"NL91BUNQ0417164300","name":"J Jansen"}]}},
			{"MonetaryAccountSavings":{"id":2,"status":"ACTIVE","description":"Spaarpot",
				"balance":{"value":"1000.00","currency":"EUR"},"alias":[]}},
			{"MonetaryAccountFuture":{"id":3,"description":"unknown shape"}},
			{"MonetaryAccountJoint":{"id":4,"status":"ACTIVE","description":"Samen",
				"balance":{"value":"-12.50","currency":"EUR"}}}
		]}`))
	}))
	defer srv.Close()
	c, _ := testDialer(t, srv)

	accounts, err := c.ListMonetaryAccounts(context.Background(), Session{Token: "t", UserID: 11})
	require.NoError(t, err)
	// The unknown variant is skipped, the known ones survive.
	require.Len(t, accounts, 3)

	require.Equal(t, "MonetaryAccountBank", accounts[0].Type)
	require.Equal(t, int64(1), accounts[0].ID)
	require.Equal(t, "NL91BUNQ0417164300", accounts[0].IBAN)
	require.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("250.75")))
	require.Equal(t, "EUR", accounts[0].Currency)

	require.Equal(t, "MonetaryAccountSavings", accounts[1].Type)
	require.Empty(t, accounts[1].IBAN)

	require.Equal(t, "MonetaryAccountJoint", accounts[2].Type)
	require.True(t, accounts[2].Balance.Equal(decimal.RequireFromString("-12.50")))
}
