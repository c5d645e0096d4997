package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// テスト用の署名鍵。
const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

// TestIssueAndVerify はIssueとVerifyの組み合わせを検証する。
func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	t.Run("発行したトークンを同じ鍵で検証できること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Issue([]byte(testAccessSecret), "admin@nbm.com", RoleAdmin, time.Hour)
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}

		claims, err := Verify(tokenStr, []byte(testAccessSecret))
		if err != nil {
			t.Fatalf("Verify()でエラーが発生: %v", err)
		}
		if claims.Email != "admin@nbm.com" {
			t.Errorf("Email = %q, want %q", claims.Email, "admin@nbm.com")
		}
		if claims.Role != RoleAdmin {
			t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
		}
		if claims.Issuer != issuer {
			t.Errorf("Issuer = %q, want %q", claims.Issuer, issuer)
		}
	})

	t.Run("署名アルゴリズムがHS256であること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Issue([]byte(testAccessSecret), "alg@example.com", RoleUser, time.Hour)
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}

		parsed, _, err := new(jwt.Parser).ParseUnverified(tokenStr, &Claims{})
		if err != nil {
			t.Fatalf("トークンのパースに失敗: %v", err)
		}
		if parsed.Method.Alg() != "HS256" {
			t.Errorf("署名アルゴリズム = %q, want %q", parsed.Method.Alg(), "HS256")
		}
	})

	t.Run("空文字列はErrMissingになること", func(t *testing.T) {
		t.Parallel()

		_, err := Verify("", []byte(testAccessSecret))
		if !errors.Is(err, ErrMissing) {
			t.Errorf("err = %v, want ErrMissing", err)
		}
	})

	t.Run("期限切れのトークンはErrInvalidOrExpiredになること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Issue([]byte(testAccessSecret), "old@example.com", RoleUser, -time.Minute)
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}

		_, err = Verify(tokenStr, []byte(testAccessSecret))
		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("異なる鍵では検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Issue([]byte(testAccessSecret), "wrong@example.com", RoleUser, time.Hour)
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}

		_, err = Verify(tokenStr, []byte("wrong-secret"))
		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("改ざんされたトークンは検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		tokenStr, err := Issue([]byte(testAccessSecret), "tamper@example.com", RoleUser, time.Hour)
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}

		tampered := tokenStr[:len(tokenStr)-2] + "xx"
		if tampered == tokenStr {
			tampered = tokenStr[:len(tokenStr)-2] + "yy"
		}
		if _, err := Verify(tampered, []byte(testAccessSecret)); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("HS256以外のアルゴリズムは拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Email: "hs512@example.com",
			Role:  RoleAdmin,
		}
		tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
		if err != nil {
			t.Fatalf("トークンの署名に失敗: %v", err)
		}

		if _, err := Verify(tokenStr, []byte(testAccessSecret)); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("有効期限のないトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := Claims{Email: "noexp@example.com", Role: RoleAdmin}
		tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
		if err != nil {
			t.Fatalf("トークンの署名に失敗: %v", err)
		}

		if _, err := Verify(tokenStr, []byte(testAccessSecret)); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
	})
}

// TestService はServiceのアクセストークン・リフレッシュトークン処理を検証する。
func TestService(t *testing.T) {
	t.Parallel()

	t.Run("アクセストークンの有効期限が24時間後であること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testAccessSecret, testRefreshSecret)
		before := time.Now()
		tokenStr, err := svc.IssueAccessToken("exp@example.com", RoleAdmin)
		if err != nil {
			t.Fatalf("IssueAccessToken()でエラーが発生: %v", err)
		}

		claims, err := svc.VerifyAccessToken(tokenStr)
		if err != nil {
			t.Fatalf("VerifyAccessToken()でエラーが発生: %v", err)
		}

		expected := before.Add(24 * time.Hour)
		if claims.ExpiresAt.Time.Before(expected.Add(-time.Minute)) || claims.ExpiresAt.Time.After(expected.Add(time.Minute)) {
			t.Errorf("ExpiresAt = %v, want およそ %v", claims.ExpiresAt.Time, expected)
		}
	})

	t.Run("リフレッシュトークンの有効期限が7日後であること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testAccessSecret, testRefreshSecret)
		before := time.Now()
		tokenStr, err := svc.IssueRefreshToken("exp@example.com", RoleAdmin)
		if err != nil {
			t.Fatalf("IssueRefreshToken()でエラーが発生: %v", err)
		}

		claims, err := svc.VerifyRefreshToken(tokenStr)
		if err != nil {
			t.Fatalf("VerifyRefreshToken()でエラーが発生: %v", err)
		}

		expected := before.Add(7 * 24 * time.Hour)
		if claims.ExpiresAt.Time.Before(expected.Add(-time.Minute)) || claims.ExpiresAt.Time.After(expected.Add(time.Minute)) {
			t.Errorf("ExpiresAt = %v, want およそ %v", claims.ExpiresAt.Time, expected)
		}
	})

	t.Run("アクセストークンとリフレッシュトークンは別の鍵で署名されること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testAccessSecret, testRefreshSecret)
		refresh, err := svc.IssueRefreshToken("mix@example.com", RoleAdmin)
		if err != nil {
			t.Fatalf("IssueRefreshToken()でエラーが発生: %v", err)
		}

		if _, err := svc.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("リフレッシュトークンがアクセストークンとして受理された: err = %v", err)
		}
	})

	t.Run("Refreshは同じemailとroleのアクセストークンを発行すること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testAccessSecret, testRefreshSecret)
		refresh, err := svc.IssueRefreshToken("admin@nbm.com", RoleAdmin)
		if err != nil {
			t.Fatalf("IssueRefreshToken()でエラーが発生: %v", err)
		}

		access, _, err := svc.Refresh(refresh)
		if err != nil {
			t.Fatalf("Refresh()でエラーが発生: %v", err)
		}

		claims, err := svc.VerifyAccessToken(access)
		if err != nil {
			t.Fatalf("VerifyAccessToken()でエラーが発生: %v", err)
		}
		if claims.Email != "admin@nbm.com" || claims.Role != RoleAdmin {
			t.Errorf("claims = (%q, %q), want (admin@nbm.com, admin)", claims.Email, claims.Role)
		}
	})

	t.Run("不正なリフレッシュトークンではRefreshが失敗すること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testAccessSecret, testRefreshSecret)
		if _, _, err := svc.Refresh("not-a-token"); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
		if _, _, err := svc.Refresh(""); !errors.Is(err, ErrMissing) {
			t.Errorf("err = %v, want ErrMissing", err)
		}
	})

	t.Run("WithAccessTTLで有効期間を変更できること", func(t *testing.T) {
		t.Parallel()

		svc := NewService(testAccessSecret, testRefreshSecret, WithAccessTTL(-time.Second))
		tokenStr, err := svc.IssueAccessToken("short@example.com", RoleUser)
		if err != nil {
			t.Fatalf("IssueAccessToken()でエラーが発生: %v", err)
		}
		if _, err := svc.VerifyAccessToken(tokenStr); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("err = %v, want ErrInvalidOrExpired", err)
		}
		if svc.AccessTTL() != -time.Second {
			t.Errorf("AccessTTL() = %v, want %v", svc.AccessTTL(), -time.Second)
		}
	})
}
