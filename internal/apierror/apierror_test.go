package apierror_test

import (
	"errors"
	"net/http"
	"testing"

	"kogma/internal/apierror"
	"kogma/internal/validators"
	"kogma/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromValidationErrorFieldPaths(t *testing.T) {
	v := validators.New(true)

	named := models.CreateOrderInput{
		CompanyID: 1,
		Title:     "X",
		Processes: []models.ProcessInput{{Name: "Xyz"}},
		Materials: []models.MaterialInput{{Qty: decimal.NewFromInt(1)}},
	}
	ae := apierror.FromValidationError(v.Struct(named))
	require.NotNil(t, ae)
	require.Contains(t, ae.Fields, "processes[0].name")
	require.Contains(t, ae.Fields, "materials[0].description")

	anonymous := struct {
		Materials []models.MaterialInput `json:"materials" validate:"dive"`
	}{[]models.MaterialInput{{Description: "A"}, {}}}
	ae = apierror.FromValidationError(v.Struct(anonymous))
	require.NotNil(t, ae)
	require.Equal(t, map[string][]string{"materials[1].description": {"campo obrigatório"}}, ae.Fields)

	ae = apierror.FromValidationError(v.Struct(models.LoginInput{Email: "a@x.com"}))
	require.Equal(t, map[string][]string{"password": {"campo obrigatório"}}, ae.Fields)
}

func TestQtyPrecision(t *testing.T) {
	v := validators.New(true)
	for qty, ok := range map[string]bool{
		"0":             true,
		"2.5":           true,
		"999999999.999": true,
		"1000000000":    false,
		"1.2345":        false,
		"-1":            false,
	} {
		in := models.MaterialInput{Description: "A", Qty: decimal.RequireFromString(qty)}
		err := v.Struct(in)
		if ok {
			require.NoError(t, err, qty)
			continue
		}
		ae := apierror.FromValidationError(err)
		require.NotNil(t, ae, qty)
		require.Equal(t, []string{apierror.QtyProblem}, ae.Fields["qty"], qty)
	}
}

func TestFromMapsKinds(t *testing.T) {
	require.Equal(t, http.StatusUnprocessableEntity, apierror.New(apierror.KindReference, "x").Code())
	require.Equal(t, http.StatusConflict, apierror.From(apierror.Conflict("dup")).Code())

	internal := apierror.From(errors.New("boom"))
	require.Equal(t, apierror.KindInternal, internal.Kind)
	require.Equal(t, "Erro interno", internal.Message)
	require.Nil(t, apierror.FromValidationError(errors.New("not a validation error")))
}
