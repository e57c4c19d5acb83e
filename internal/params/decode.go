package params

import (
	"errors"
	"net/url"
	"strings"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/mediaerr"
)

// PromptPolicy decides which requests may carry a prompt.
type PromptPolicy string

const (
	// PromptDeny strips prompts from every request.
	PromptDeny PromptPolicy = "deny"
	// PromptSigned keeps prompts only on signed tokens.
	PromptSigned PromptPolicy = "signed"
	// PromptAllow keeps prompts on every request.
	PromptAllow PromptPolicy = "allow"
)

// ParsePromptPolicy parses a policy name, defaulting to deny.
func ParsePromptPolicy(s string) PromptPolicy {
	switch PromptPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PromptSigned:
		return PromptSigned
	case PromptAllow:
		return PromptAllow
	default:
		return PromptDeny
	}
}

// DecodeOptions configures DecodeRequest.
type DecodeOptions struct {
	Parse        ParseOptions
	Signer       *Signer
	PromptPolicy PromptPolicy
}

// TokenPrefix marks request paths of the form t/<token>/<asset>.
const TokenPrefix = "t/"

// DecodeRequest turns a request path and query into an asset reference and
// the params the caller is permitted to use. It does no I/O.
//
// Paths starting with "t/<token>/" carry params in the opaque token; any
// other path is the asset itself with params in the query string.
func DecodeRequest(rawPath, rawQuery string, opts DecodeOptions) (assets.Ref, Params, Grants, error) {
	p := strings.TrimLeft(rawPath, "/")

	var (
		prm    Params
		signed bool
		asset  string
		err    error
	)

	if rest, ok := strings.CutPrefix(p, TokenPrefix); ok {
		token, tail, found := strings.Cut(rest, "/")
		if !found || token == "" {
			return assets.Ref{}, Params{}, Grants{}, invalidRequest("token path must be t/<token>/<asset>", nil)
		}
		if err := rejectQueryParams(rawQuery); err != nil {
			return assets.Ref{}, Params{}, Grants{}, err
		}
		prm, signed, err = DecodeToken(token, opts.Signer, opts.Parse)
		if err != nil {
			return assets.Ref{}, Params{}, Grants{}, err
		}
		asset = tail
	} else {
		values, qerr := url.ParseQuery(rawQuery)
		if qerr != nil {
			return assets.Ref{}, Params{}, Grants{}, invalidRequest("malformed query string", qerr)
		}
		prm, err = Parse(values, opts.Parse)
		if err != nil {
			return assets.Ref{}, Params{}, Grants{}, err
		}
		asset = p
	}

	unescaped, err := url.PathUnescape(asset)
	if err != nil {
		return assets.Ref{}, Params{}, Grants{}, invalidRequest("malformed asset path", err)
	}
	normalized, err := assets.NormalizePath(unescaped)
	if err != nil {
		if errors.Is(err, assets.ErrTraversal) {
			return assets.Ref{}, Params{}, Grants{}, invalidRequest("asset path escapes media root", nil)
		}
		return assets.Ref{}, Params{}, Grants{}, invalidRequest("asset path is required", nil)
	}

	grants := grantsFor(opts.PromptPolicy, signed)
	return assets.Ref{Path: normalized}, prm.ForGrants(grants), grants, nil
}

func grantsFor(policy PromptPolicy, signed bool) Grants {
	switch policy {
	case PromptAllow:
		return Grants{AllowPrompt: true}
	case PromptSigned:
		return Grants{AllowPrompt: signed}
	default:
		return Grants{}
	}
}

// rejectQueryParams refuses allow-listed keys next to a token so the two
// encodings cannot be mixed. Unrelated keys such as cache busters pass.
func rejectQueryParams(rawQuery string) error {
	if rawQuery == "" {
		return nil
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return invalidRequest("malformed query string", err)
	}
	for k := range values {
		if _, ok := CanonicalKey(k); ok {
			return invalidRequest("token requests take no transform parameters in the query", nil)
		}
	}
	return nil
}

func invalidRequest(detail string, cause error) error {
	return mediaerr.New(mediaerr.ErrInvalidParams, "decode request", detail, cause)
}
