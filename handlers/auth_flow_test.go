package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gin-gonic/gin"
)

func signupPayload() gin.H {
	return gin.H{
		"userData": gin.H{
			"name":     "Carol",
			"email":    "carol@example.com",
			"age":      30,
			"gender":   "female",
			"mobile":   "9876543210",
			"address":  "7 Pottery Lane",
			"password": "s3cretpass",
		},
	}
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/login/signup", "", signupPayload())
	require.Equal(t, http.StatusOK, w.Code)

	// the OTP mail went to the right address
	require.Equal(t, []string{"carol@example.com"}, env.mailer.sent)

	code := env.cache.entries["otp:carol@example.com"]
	require.Len(t, code, 6)

	body := signupPayload()
	body["otp"] = code
	w = env.do(t, http.MethodPost, "/login/signup/validate", "", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// the issued token opens authenticated routes
	w = env.do(t, http.MethodGet, "/api/user/stores", "Bearer "+resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the OTP was consumed
	require.NotContains(t, env.cache.entries, "otp:carol@example.com")
}

func TestSignupValidateWrongOTP(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/login/signup", "", signupPayload())
	require.Equal(t, http.StatusOK, w.Code)

	code := env.cache.entries["otp:carol@example.com"]
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	body := signupPayload()
	body["otp"] = wrong
	w = env.do(t, http.MethodPost, "/login/signup/validate", "", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	// a wrong guess does not burn the staged code
	body["otp"] = code
	w = env.do(t, http.MethodPost, "/login/signup/validate", "", body)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSignupRejectsIncompleteProfile(t *testing.T) {
	env := newTestEnv(t)

	body := signupPayload()
	body["userData"].(gin.H)["email"] = ""
	w := env.do(t, http.MethodPost, "/login/signup", "", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, env.mailer.sent)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/login/update-password/get-otp", "", gin.H{"email": env.buyer.Email})
	require.Equal(t, http.StatusOK, w.Code)

	code := env.cache.entries["otp:"+env.buyer.Email]
	require.Len(t, code, 6)

	w = env.do(t, http.MethodPost, "/login/update-password/verify", "",
		gin.H{"email": env.buyer.Email, "otp": code})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// reset tokens cannot open regular authenticated routes
	w = env.do(t, http.MethodGet, "/api/user/stores", "Bearer "+resp.Token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// but do permit the password update
	w = env.do(t, http.MethodPost, "/login/update-password", "Bearer "+resp.Token,
		gin.H{"newPassword": "brand-new-pass"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/login/update-password/get-otp", "", gin.H{"email": "ghost@example.com"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)

	// the buyer does not own the store
	w := env.do(t, http.MethodPut, "/api/store/"+env.store.ID, env.token(t, env.buyer),
		gin.H{"storeData": gin.H{"name": "Hijacked", "address": "1 Elsewhere"}})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/store/"+env.store.ID, env.token(t, env.owner),
		gin.H{"storeData": gin.H{"name": "Mug Works II", "address": "12 Kiln Road"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Mug Works II", env.catalog.stores[env.store.ID].Name)
}

func TestListProductsIsPublic(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/store/"+env.store.ID+"/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/store/does-not-exist/products", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
