package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"time"

	"shortlink/pkg/address"
	"shortlink/pkg/cache"
	"shortlink/pkg/logging"
	"shortlink/pkg/retry"
	"shortlink/pkg/storage"
	"shortlink/pkg/timeutil"

	"github.com/google/uuid"
)

const (
	maxTargetLength = 2048

	// One generated-address insert plus one retry. A collision on a fresh
	// 6-character address is already rare; two in a row means something is
	// wrong upstream and the request should fail loudly.
	createAttempts = 2

	// Upper bound for cache entries; the remaining link life caps it lower.
	maxCacheTTL = time.Hour
)

var (
	ErrInvalidTarget  = errors.New("target must be an absolute http(s) URL")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidDomain  = errors.New("invalid domain")

	// ErrAddressExhausted means every insert attempt hit an address
	// collision. Treated as a transient upstream fault, not a client error.
	ErrAddressExhausted = errors.New("could not allocate a free address")
)

var addressRegExp = regexp.MustCompile(`^[0-9A-Za-z]{1,50}$`)

// LinkService owns the link lifecycle: creation with collision-safe address
// allocation, redirect resolution, and after-the-fact inspection.
type LinkService struct {
	storage    storage.LinkStorage
	cache      cache.TargetCacheInterface // nil disables caching
	logger     *logging.Logger
	defaultTTL time.Duration
	nowFunc    func() time.Time
}

func NewLinkService(storage storage.LinkStorage, cache cache.TargetCacheInterface, logger *logging.Logger, defaultTTL time.Duration) *LinkService {
	return &LinkService{
		storage:    storage,
		cache:      cache,
		logger:     logger,
		defaultTTL: defaultTTL,
		nowFunc:    time.Now,
	}
}

type CreateLinkRequest struct {
	Address  string `json:"address,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Target   string `json:"target"`
	ExpireIn string `json:"expire_in,omitempty"`
}

type CreateLinkResponse struct {
	storage.Link
	// ShortURL is only set when the caller supplied a domain.
	ShortURL string `json:"link,omitempty"`
}

// CreateLink validates the request and persists a new link. A caller-supplied
// address gets a single insert attempt and the conflict is theirs to handle;
// a generated address is retried once with a fresh value on collision.
func (s *LinkService) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	target, err := validateTarget(req.Target)
	if err != nil {
		return nil, err
	}
	if req.Domain != "" && !validDomain(req.Domain) {
		return nil, ErrInvalidDomain
	}

	expireIn := s.defaultTTL
	if d, ok := timeutil.ParseDuration(req.ExpireIn); ok {
		expireIn = d
	}
	expiredAt := s.nowFunc().Add(expireIn).UTC()

	var link *storage.Link
	if req.Address != "" {
		if !addressRegExp.MatchString(req.Address) {
			return nil, ErrInvalidAddress
		}
		link, err = s.insert(ctx, req.Address, target, expiredAt)
		if err != nil {
			return nil, err
		}
	} else {
		link, err = retry.Do(ctx, createAttempts, func(ctx context.Context) (*storage.Link, error) {
			return s.insert(ctx, address.Generate(), target, expiredAt)
		})
		if storage.IsAddressTaken(err) {
			return nil, ErrAddressExhausted
		}
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info(ctx, "link created",
		"id", link.ID,
		"address", link.Address,
		"expired_at", link.ExpiredAt,
	)

	resp := &CreateLinkResponse{Link: *link}
	if req.Domain != "" {
		shortURL := url.URL{Scheme: "https", Host: req.Domain, Path: "/" + link.Address}
		resp.ShortURL = shortURL.String()
	}
	return resp, nil
}

// Resolve is the redirect path: it atomically marks the link visited and
// returns its target. A miss (unknown or expired address) is reported as
// ("", nil); the handler owns the fallback redirect.
func (s *LinkService) Resolve(ctx context.Context, addr string) (string, error) {
	if s.cache != nil {
		target, err := s.cache.GetTarget(ctx, addr)
		if err != nil {
			s.logger.Warn(ctx, "target cache read failed", "error", err)
		} else if target != "" {
			return target, nil
		}
	}

	link, err := s.storage.MarkVisited(ctx, addr)
	if err != nil {
		return "", err
	}
	if link == nil {
		return "", nil
	}

	if s.cache != nil {
		ttl := time.Until(link.ExpiredAt)
		if ttl > maxCacheTTL {
			ttl = maxCacheTTL
		}
		if err := s.cache.SetTarget(ctx, addr, link.Target, ttl); err != nil {
			s.logger.Warn(ctx, "target cache write failed", "error", err)
		}
	}
	return link.Target, nil
}

// GetLink returns a link by id regardless of expiry state, or nil if the id
// is unknown.
func (s *LinkService) GetLink(ctx context.Context, id uuid.UUID) (*storage.Link, error) {
	return s.storage.GetByID(ctx, id)
}

func (s *LinkService) insert(ctx context.Context, addr, target string, expiredAt time.Time) (*storage.Link, error) {
	link := &storage.Link{
		ID:        uuid.New(),
		Address:   addr,
		Target:    target,
		ExpiredAt: expiredAt,
	}
	if err := s.storage.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func validateTarget(raw string) (string, error) {
	if raw == "" || len(raw) > maxTargetLength {
		return "", ErrInvalidTarget
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidTarget
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidTarget
	}
	if parsed.Host == "" {
		return "", ErrInvalidTarget
	}
	return raw, nil
}

func validDomain(domain string) bool {
	parsed, err := url.Parse("https://" + domain)
	return err == nil && parsed.Host == domain && parsed.Path == ""
}
