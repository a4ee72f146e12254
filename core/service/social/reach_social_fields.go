package social

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"reach_server/core/domain"

	"github.com/tidwall/gjson"
)

// FieldPath is one place a value may live in a provider payload. Scale
// converts the raw value into the internal unit (e.g. a 0..1 fraction into a
// percentage).
type FieldPath struct {
	Path  string
	Scale float64
}

// P builds an unscaled FieldPath.
func P(path string) FieldPath { return FieldPath{Path: path, Scale: 1} }

// FieldPaths lists, per semantic value, the candidate paths tried in order.
// New provider quirks are added here, not in the extraction code.
type FieldPaths struct {
	Root           []string // wrapper objects unwrapped before lookup
	SocialType     []string
	Username       []string
	DisplayName    []string
	Followers      []FieldPath
	Following      []FieldPath
	Posts          []FieldPath
	AvgLikes       []FieldPath
	AvgComments    []FieldPath
	EngagementRate []FieldPath
	QualityScore   []FieldPath
	FakeFollowers  []FieldPath
	Verified       []string
	Countries      []string
	Genders        []string
	Ages           []string
}

// DefaultFieldPaths covers the community and TikTok endpoints seen so far.
var DefaultFieldPaths = FieldPaths{
	Root:        []string{"data.user", "data", "user", "result"},
	SocialType:  []string{"type", "socialType", "social_type", "cid", "platform"},
	Username:    []string{"screenName", "username", "unique_id", "uniqueId", "screen_name", "user.username"},
	DisplayName: []string{"name", "full_name", "nickname", "display_name"},
	Followers: []FieldPath{
		P("followers"), P("followers_count"), P("follower_count"), P("followerCount"),
		P("user.followers_count"), P("edge_followed_by.count"), P("usersCount"),
		P("stats.followerCount"),
	},
	Following: []FieldPath{
		P("following"), P("following_count"), P("followingCount"), P("friends_count"),
		P("user.friends_count"), P("edge_follow.count"), P("stats.followingCount"),
	},
	Posts: []FieldPath{
		P("posts"), P("posts_count"), P("media_count"), P("statuses_count"), P("tweets"),
		P("user.statuses_count"), P("edge_owner_to_timeline_media.count"), P("videoCount"),
		P("aweme_count"), P("stats.videoCount"),
	},
	AvgLikes: []FieldPath{
		P("avgLikes"), P("avg_likes"), P("average_likes"), P("avgLikesCount"),
	},
	AvgComments: []FieldPath{
		P("avgComments"), P("avg_comments"), P("average_comments"), P("avgCommentsCount"),
	},
	EngagementRate: []FieldPath{
		P("engagement_rate"), P("engagementRate"), {Path: "avgER", Scale: 100},
	},
	QualityScore: []FieldPath{
		P("quality_score"), {Path: "qualityScore", Scale: 100},
	},
	FakeFollowers: []FieldPath{
		P("fake_followers_pct"), P("fakeFollowersPercent"), {Path: "fakeFollowers", Scale: 100},
	},
	Verified:  []string{"verified", "is_verified", "isVerified"},
	Countries: []string{"audience.top_countries", "countries", "audience.countries"},
	Genders:   []string{"audience.gender", "genders", "audience.genders"},
	Ages:      []string{"audience.age_groups", "ages", "audience.ages"},
}

// socialTypes maps embedded type codes to platforms.
var socialTypes = map[string]domain.Platform{
	"inst":      domain.PlatformInstagram,
	"instagram": domain.PlatformInstagram,
	"ig":        domain.PlatformInstagram,
	"tw":        domain.PlatformTwitter,
	"twitter":   domain.PlatformTwitter,
	"x":         domain.PlatformTwitter,
	"tt":        domain.PlatformTikTok,
	"tiktok":    domain.PlatformTikTok,
	"fb":        domain.PlatformFacebook,
	"facebook":  domain.PlatformFacebook,
}

// document is a parsed payload. scopes holds the unwrapped profile objects,
// innermost first, followed by the envelope itself.
type document struct {
	raw    gjson.Result
	scopes []gjson.Result
}

func parseDocument(body []byte, roots []string) (document, bool) {
	if !gjson.ValidBytes(body) {
		return document{}, false
	}
	raw := gjson.ParseBytes(body)
	if !raw.IsObject() {
		return document{}, false
	}
	doc := document{raw: raw}
	for _, path := range roots {
		if r := raw.Get(path); r.IsObject() {
			doc.scopes = append(doc.scopes, r)
		}
	}
	doc.scopes = append(doc.scopes, raw)
	return doc, true
}

// lookup returns the first existing value for path, searching scopes in order.
func (d document) lookup(path string) gjson.Result {
	for _, scope := range d.scopes {
		if r := scope.Get(path); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// SocialType returns the platform the payload claims to describe, if any.
func (d document) SocialType(paths []string) (domain.Platform, bool) {
	for _, scope := range d.scopes {
		for _, path := range paths {
			r := scope.Get(path)
			if r.Type != gjson.String {
				continue
			}
			if p, ok := socialTypes[strings.ToLower(strings.TrimSpace(r.Str))]; ok {
				return p, true
			}
		}
	}
	return "", false
}

// Number returns the first path that yields a finite number. Numeric strings
// ("12,300") are accepted.
func (d document) Number(paths []FieldPath) (float64, bool) {
	for _, fp := range paths {
		v, ok := finiteNumber(d.lookup(fp.Path))
		if !ok {
			continue
		}
		scale := fp.Scale
		if scale == 0 {
			scale = 1
		}
		return v * scale, true
	}
	return 0, false
}

// Count is Number restricted to non-negative values.
func (d document) Count(paths []FieldPath) (int64, bool) {
	for _, fp := range paths {
		v, ok := d.Number([]FieldPath{fp})
		if ok && v >= 0 {
			return int64(math.Round(v)), true
		}
	}
	return 0, false
}

func (d document) String(paths []string) string {
	for _, path := range paths {
		if r := d.lookup(path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func (d document) Bool(paths []string) bool {
	for _, path := range paths {
		if r := d.lookup(path); r.IsBool() {
			return r.Bool()
		}
	}
	return false
}

// Distribution reads either {"US": 40.5} or [{"name": "US", "percent": 40.5}].
func (d document) Distribution(paths []string) map[string]float64 {
	for _, path := range paths {
		r := d.lookup(path)
		out := make(map[string]float64)
		switch {
		case r.IsObject():
			r.ForEach(func(key, value gjson.Result) bool {
				if v, ok := finiteNumber(value); ok {
					out[key.String()] = v
				}
				return true
			})
		case r.IsArray():
			r.ForEach(func(_, item gjson.Result) bool {
				name := firstString(item, "name", "code", "category", "label")
				v, ok := finiteNumber(firstExisting(item, "percent", "value", "share", "weight"))
				if name != "" && ok {
					out[name] = v
				}
				return true
			})
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// TopLevelKeys lists the envelope's keys for malformed-response diagnostics.
func (d document) TopLevelKeys() []string {
	var keys []string
	d.raw.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	sort.Strings(keys)
	return keys
}

func finiteNumber(r gjson.Result) (float64, bool) {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(r.Str), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func firstString(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func firstExisting(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
