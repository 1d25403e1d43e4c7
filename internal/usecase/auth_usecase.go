package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// ハッシュと平文の照合
type PasswordVerifier interface {
	Verify(hash string, plain string) bool
}

// アクセストークンを発行する約束。実装はcmd側（JWT）。
type TokenIssuer interface {
	Issue(userID string, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// AuthUsecase は会員登録とログイン。
// リフレッシュトークン等のセッション管理は持たない。
type AuthUsecase struct {
	userRepo repo.UserRepository
	hasher   PasswordHasher
	verifier PasswordVerifier
	issuer   TokenIssuer
	clock    Clock
}

func NewAuthUsecase(
	userRepo repo.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer TokenIssuer,
	clock Clock,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type UserOutput struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// 会員登録
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return UserOutput{}, errValidation("invalid email format")
	}
	if len(in.Password) < 8 {
		return UserOutput{}, errValidation("password too short")
	}
	if strings.TrimSpace(in.Name) == "" {
		return UserOutput{}, errValidation("name is required")
	}

	// email重複チェック
	_, err := u.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return UserOutput{}, NewHTTPError(http.StatusConflict, KindConflict, "email already exists")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return UserOutput{}, errInternal()
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserOutput{}, errInternal()
	}

	created, err := u.userRepo.Create(ctx, model.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(in.Name),
		Role:         model.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		return UserOutput{}, errInternal()
	}

	return toUserOutput(created), nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	User      UserOutput `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ログイン。成功したらアクセストークンを返す。
// クライアントはこの後、手元のセッショントークンで /cart/merge を一度だけ呼ぶ。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))

	user, err := u.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, KindUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, errInternal()
	}
	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, KindUnauthorized, "invalid credentials")
	}

	if !u.verifier.Verify(user.PasswordHash, in.Password) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, KindUnauthorized, "invalid credentials")
	}

	now := u.clock.Now()
	token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		return LoginOutput{}, errInternal()
	}

	_ = u.userRepo.UpdateLastLogin(ctx, user.ID, now)

	return LoginOutput{
		User:      toUserOutput(user),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Me はトークンのsubから本人情報を引く。
// 退会済み・削除済みのアカウントはトークンが生きていても401。
func (u *AuthUsecase) Me(ctx context.Context, userID string) (UserOutput, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, KindUnauthorized, "account not found")
	}
	if err != nil {
		return UserOutput{}, errInternal()
	}
	if !user.IsActive {
		return UserOutput{}, NewHTTPError(http.StatusUnauthorized, KindUnauthorized, "account not found")
	}
	return toUserOutput(user), nil
}

func toUserOutput(user model.User) UserOutput {
	return UserOutput{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
}

// bcrypt実装

type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type BcryptPasswordVerifier struct{}

func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
