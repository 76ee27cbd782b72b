package service

import (
	"context"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Account is one known user. PasswordHash (bcrypt) wins over Password.
type Account struct {
	Name         string `yaml:"name"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// Page is the view data returned with a Result.
type Page struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

func (p Page) data() map[string]any {
	return map[string]any{"title": p.Title, "content": p.Content}
}

// HomeConfig is the body of the home service descriptor.
type HomeConfig struct {
	Accounts []Account `yaml:"accounts"`
	Success  Page      `yaml:"success"`
	Failure  Page      `yaml:"failure"`
}

func DefaultHomeConfig() HomeConfig {
	return HomeConfig{
		Accounts: []Account{{Name: "ikcamp", Password: "123456"}},
		Success:  Page{Title: "个人中心", Content: "欢迎进入个人中心"},
		Failure:  Page{Title: "登录失败", Content: "请输入正确的账号信息"},
	}
}

type credential struct {
	plain []byte
	hash  []byte
}

// Home checks credentials against a fixed account table.
type Home struct {
	accounts map[string]credential
	success  Page
	failure  Page
}

func NewHome(cfg HomeConfig) (*Home, error) {
	h := &Home{
		accounts: make(map[string]credential, len(cfg.Accounts)),
		success:  cfg.Success,
		failure:  cfg.Failure,
	}
	for i, a := range cfg.Accounts {
		if a.Name == "" {
			return nil, xerrors.Newf("account %d: name is required", i)
		}
		if _, dup := h.accounts[a.Name]; dup {
			return nil, xerrors.Newf("account %q defined twice", a.Name)
		}
		var cred credential
		switch {
		case a.PasswordHash != "":
			if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
				return nil, xerrors.Wrapf(err, "account %q: invalid password_hash", a.Name)
			}
			cred.hash = []byte(a.PasswordHash)
		case a.Password != "":
			cred.plain = []byte(a.Password)
		default:
			return nil, xerrors.Newf("account %q: password or password_hash is required", a.Name)
		}
		h.accounts[a.Name] = cred
	}
	return h, nil
}

func newHomeFromDescriptor(d capability.Descriptor) (any, error) {
	cfg := DefaultHomeConfig()
	if err := d.Decode(&cfg); err != nil {
		return nil, err
	}
	h, err := NewHome(cfg)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Register reports StatusOK with the success page for a known name and
// matching password, StatusFailed with the failure page otherwise.
func (h *Home) Register(ctx context.Context, name, password string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, xerrors.Wrap(err, "register")
	}
	if h.check(name, password) {
		return Result{Status: StatusOK, Data: h.success.data()}, nil
	}
	return Result{Status: StatusFailed, Data: h.failure.data()}, nil
}

func (h *Home) check(name, password string) bool {
	cred, ok := h.accounts[name]
	if !ok || password == "" {
		return false
	}
	if cred.hash != nil {
		return bcrypt.CompareHashAndPassword(cred.hash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare(cred.plain, []byte(password)) == 1
}

// HashPassword returns a bcrypt hash suitable for an account's password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", xerrors.New("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", xerrors.Wrap(err, "hash password")
	}
	return string(b), nil
}
