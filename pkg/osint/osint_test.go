package osint

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/logger"
	"osintgram/pkg/record"
	"osintgram/pkg/report"
	"osintgram/pkg/session"
)

type fakeClient struct {
	feed      [][]record.Record
	followers [][]record.Record
	following [][]record.Record
	usertags  [][]record.Record
	comments  map[string][]record.Record
	infos     map[string]record.Record
	stories   []record.Record
	// throttleAt makes the listing page with this index fail with a throttle
	throttleAt map[string]int

	calls     int
	infoCalls int
}

func (f *fakeClient) page(name string, pages [][]record.Record, cursor string) ([]record.Record, string, error) {
	f.calls++
	idx := 0
	if cursor != "" {
		idx, _ = strconv.Atoi(cursor)
	}
	if at, ok := f.throttleAt[name]; ok && at == idx {
		return nil, "", errs.New(errs.ErrorTypeRateLimit, 429, "please wait a few minutes")
	}
	if idx >= len(pages) {
		return nil, "", nil
	}
	next := ""
	if idx+1 < len(pages) {
		next = strconv.Itoa(idx + 1)
	}
	return pages[idx], next, nil
}

func (f *fakeClient) UserInfo(_ context.Context, id string) (record.Record, error) {
	f.calls++
	f.infoCalls++
	info, ok := f.infos[id]
	if !ok {
		return nil, errs.New(errs.ErrorTypeNotFound, 404, "user not found")
	}
	return info, nil
}

func (f *fakeClient) Followers(_ context.Context, _, cursor string) ([]record.Record, string, error) {
	return f.page("followers", f.followers, cursor)
}

func (f *fakeClient) Following(_ context.Context, _, cursor string) ([]record.Record, string, error) {
	return f.page("following", f.following, cursor)
}

func (f *fakeClient) UserFeed(_ context.Context, _, cursor string) ([]record.Record, string, error) {
	return f.page("feed", f.feed, cursor)
}

func (f *fakeClient) UserTags(_ context.Context, _, cursor string) ([]record.Record, string, error) {
	return f.page("usertags", f.usertags, cursor)
}

func (f *fakeClient) MediaComments(_ context.Context, mediaID, _ string) ([]record.Record, string, error) {
	f.calls++
	return f.comments[mediaID], "", nil
}

func (f *fakeClient) Stories(context.Context, string) ([]record.Record, error) {
	f.calls++
	return f.stories, nil
}

func (f *fakeClient) DownloadMedia(_ context.Context, url string) ([]byte, error) {
	f.calls++
	return []byte(url), nil
}

type fakeGeocoder map[string]string

func (g fakeGeocoder) Reverse(_ context.Context, lat, lng float64) (string, error) {
	key := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	addr, ok := g[key]
	if !ok {
		return "", record.MissingField("display_name")
	}
	return addr, nil
}

type countingGeocoder struct {
	known fakeGeocoder
	calls int
}

func (g *countingGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	g.calls++
	return g.known.Reverse(ctx, lat, lng)
}

// failingGeocoder resolves the first ok lookups and then returns err
type failingGeocoder struct {
	ok    int
	err   error
	calls int
}

func (g *failingGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	g.calls++
	if g.calls > g.ok {
		return "", g.err
	}
	return "Somewhere " + strconv.Itoa(g.calls), nil
}

type fakeSession struct {
	target *session.Target
	export report.ExportTarget
}

func (s *fakeSession) Guard() error {
	if s.target.IsPrivate && !s.target.Following {
		return session.ErrPrivateProfile
	}
	return nil
}

func (s *fakeSession) Target() *session.Target     { return s.target }
func (s *fakeSession) Export() report.ExportTarget { return s.export }

type harness struct {
	client    *fakeClient
	geo       *countingGeocoder
	out       *bytes.Buffer
	export    report.ExportTarget
	runner    *Runner
	throttles []string
}

func newHarness(t *testing.T, client *fakeClient, private bool) *harness {
	t.Helper()
	h := &harness{client: client, out: &bytes.Buffer{}}
	h.export = report.NewExportTarget(t.TempDir(), "alice", true, true)
	sess := &fakeSession{
		target: &session.Target{
			Username:  "alice",
			ID:        "42",
			IsPrivate: private,
			Profile:   record.Record{"id": "42", "username": "alice", "full_name": "Alice", "profile_pic_url": "https://cdn/pic.jpg"},
		},
		export: h.export,
	}
	h.geo = &countingGeocoder{known: fakeGeocoder{"45.46,9.19": "Milano", "41.9,12.49": "Roma", "45.47,9.18": "Milano"}}
	h.runner = NewRunner(client, h.geo, sess, report.New(h.out, nil), logger.NewTestLogger(),
		WithThrottleHook(func(op string, _ int) { h.throttles = append(h.throttles, op) }))
	return h
}

func (h *harness) readJSON(t *testing.T, operation string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(h.export.Path(operation, "json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func user(pk int, username string) record.Record {
	return record.Record{"pk": pk, "username": username, "full_name": "Full " + username}
}

func post(id string, fields record.Record) record.Record {
	rec := record.Record{"id": id, "code": "c" + id, "taken_at": 1700000000, "media_type": 1}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

func TestAddrsWithoutLocationsWritesNothing(t *testing.T) {
	client := &fakeClient{feed: [][]record.Record{{post("1", nil), post("2", nil)}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "addrs", Options{}))

	assert.Equal(t, report.NoResults+"\n", h.out.String())
	_, err := os.Stat(h.export.OutputDirectory)
	assert.True(t, os.IsNotExist(err), "no export files for an empty result")
}

func TestAddrsSortedByTimeDescending(t *testing.T) {
	client := &fakeClient{feed: [][]record.Record{{
		post("1", record.Record{"taken_at": 100, "location": map[string]any{"lat": 45.46, "lng": 9.19}}),
		post("2", nil),
		post("3", record.Record{"taken_at": 300, "location": map[string]any{"lat": 41.9, "lng": 12.49}}),
		post("4", record.Record{"taken_at": 200, "location": map[string]any{"lat": 1.0, "lng": 1.0}}),
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "addrs", Options{}))

	doc := h.readJSON(t, "addrs")
	addrs := doc["address"].([]any)
	require.Len(t, addrs, 2, "unresolvable coordinates are skipped")
	assert.Equal(t, "Roma", addrs[0].(map[string]any)["address"])
	assert.Equal(t, "Milano", addrs[1].(map[string]any)["address"])
}

func TestAddrsListsEachPlaceOnceWithLatestPost(t *testing.T) {
	milan := map[string]any{"lat": 45.46, "lng": 9.19}
	client := &fakeClient{feed: [][]record.Record{{
		post("1", record.Record{"taken_at": 100, "location": milan}),
		post("2", record.Record{"taken_at": 300, "location": milan}),
		post("3", record.Record{"taken_at": 200, "location": milan}),
		post("4", record.Record{"taken_at": 250, "location": map[string]any{"lat": 41.9, "lng": 12.49}}),
		post("5", record.Record{"taken_at": 50, "location": map[string]any{"lat": 45.47, "lng": 9.18}}),
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "addrs", Options{}))

	assert.Equal(t, 3, h.geo.calls, "one lookup per distinct coordinate")
	doc := h.readJSON(t, "addrs")
	addrs := doc["address"].([]any)
	require.Len(t, addrs, 2, "nearby coordinates resolving to one address are merged")
	assert.Equal(t, "Milano", addrs[0].(map[string]any)["address"])
	assert.Equal(t, "https://www.instagram.com/p/c2/", addrs[0].(map[string]any)["post"])
	assert.Equal(t, "Roma", addrs[1].(map[string]any)["address"])
}

func TestAddrsGeocoderFaults(t *testing.T) {
	located := func() *fakeClient {
		return &fakeClient{feed: [][]record.Record{{
			post("1", record.Record{"taken_at": 300, "location": map[string]any{"lat": 1.0, "lng": 1.0}}),
			post("2", record.Record{"taken_at": 200, "location": map[string]any{"lat": 2.0, "lng": 2.0}}),
			post("3", record.Record{"taken_at": 100, "location": map[string]any{"lat": 3.0, "lng": 3.0}}),
		}}}
	}

	t.Run("throttle keeps the resolved places", func(t *testing.T) {
		h := newHarness(t, located(), false)
		geo := &failingGeocoder{ok: 1, err: errs.New(errs.ErrorTypeRateLimit, 429, "slow down")}
		h.runner.geocoder = geo

		require.NoError(t, h.runner.Run(context.Background(), "addrs", Options{}))

		assert.Equal(t, []string{"addrs"}, h.throttles)
		assert.Contains(t, h.out.String(), report.PartialNotice)
		addrs := h.readJSON(t, "addrs")["address"].([]any)
		require.Len(t, addrs, 1)
		assert.Equal(t, "Somewhere 1", addrs[0].(map[string]any)["address"])
	})

	t.Run("other faults abort", func(t *testing.T) {
		h := newHarness(t, located(), false)
		h.runner.geocoder = &failingGeocoder{ok: 1, err: errs.New(errs.ErrorTypeServerError, 503, "unavailable")}

		err := h.runner.Run(context.Background(), "addrs", Options{})
		assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(err))
		_, statErr := os.Stat(h.export.OutputDirectory)
		assert.True(t, os.IsNotExist(statErr), "no partial export")
	})
}

func TestPrivateTargetRefusesDataOperations(t *testing.T) {
	for _, op := range Operations() {
		if op.AllowPrivate {
			continue
		}
		t.Run(op.Name, func(t *testing.T) {
			client := &fakeClient{}
			h := newHarness(t, client, true)

			err := h.runner.Run(context.Background(), op.Name, Options{})
			assert.ErrorIs(t, err, session.ErrPrivateProfile)
			assert.Zero(t, client.calls, "no remote fetch on a private profile")
			assert.Empty(t, h.out.String())
		})
	}
}

func TestInfoRunsOnPrivateTarget(t *testing.T) {
	client := &fakeClient{infos: map[string]record.Record{"42": {"pk": 42, "public_email": "alice@example.com", "media_count": 12}}}
	h := newHarness(t, client, true)

	require.NoError(t, h.runner.Run(context.Background(), "info", Options{}))
	assert.Contains(t, h.out.String(), "alice@example.com")

	doc := h.readJSON(t, "info")
	info := doc["info"].(map[string]any)
	assert.Equal(t, "alice@example.com", info["email"])
	assert.Equal(t, float64(12), info["posts"])
}

func TestEmailHarvestKeepsOnlyPopulated(t *testing.T) {
	client := &fakeClient{
		followers: [][]record.Record{{user(1, "bob"), user(2, "carol")}, {user(3, "dave")}},
		infos: map[string]record.Record{
			"1": {"public_email": "bob@example.com"},
			"2": {"public_email": ""},
			"3": {"public_email": "dave@example.com"},
		},
	}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "fwersemail", Options{}))

	doc := h.readJSON(t, "fwersemail")
	entries := doc["followers_email"].([]any)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEmpty(t, e.(map[string]any)["email"])
	}
	assert.Equal(t, "dave", entries[1].(map[string]any)["username"])
}

func TestHarvestLimitStopsLookups(t *testing.T) {
	client := &fakeClient{
		following: [][]record.Record{{user(1, "bob"), user(2, "carol"), user(3, "dave")}},
		infos: map[string]record.Record{
			"1": {"contact_phone_number": "+39 1"},
			"2": {"contact_phone_number": "+39 2"},
			"3": {"contact_phone_number": "+39 3"},
		},
	}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "fwingsnumber", Options{Limit: 1}))

	assert.Equal(t, 1, client.infoCalls)
	doc := h.readJSON(t, "fwingsnumber")
	require.Len(t, doc["followings_phone_numbers"].([]any), 1)
}

func TestHarvestSkipsDeletedAccounts(t *testing.T) {
	client := &fakeClient{
		followers: [][]record.Record{{user(1, "bob"), user(9, "ghost")}},
		infos:     map[string]record.Record{"1": {"public_email": "bob@example.com"}},
	}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "fwersemail", Options{}))
	require.Len(t, h.readJSON(t, "fwersemail")["followers_email"].([]any), 1)
}

func TestFollowersAcrossPages(t *testing.T) {
	client := &fakeClient{followers: [][]record.Record{{user(1, "bob"), user(2, "carol")}, {user(3, "dave")}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "followers", Options{}))

	entries := h.readJSON(t, "followers")["followers"].([]any)
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]any{"id": "1", "username": "bob", "full_name": "Full bob"}, entries[0])

	text, err := os.ReadFile(h.export.Path("followers", "txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "dave")
}

func TestThrottledListingKeepsPartialResults(t *testing.T) {
	client := &fakeClient{
		following:  [][]record.Record{{user(1, "bob")}, {user(2, "carol")}},
		throttleAt: map[string]int{"following": 1},
	}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "followings", Options{}))

	assert.Contains(t, h.out.String(), report.PartialNotice)
	assert.Equal(t, []string{"followings"}, h.throttles)
	require.Len(t, h.readJSON(t, "followings")["followings"].([]any), 1)
}

func TestHashtagsCountedAndSorted(t *testing.T) {
	client := &fakeClient{feed: [][]record.Record{{
		post("1", record.Record{"caption": map[string]any{"text": "#a #b"}}),
		post("2", record.Record{"caption": map[string]any{"text": "just #b"}}),
		post("3", record.Record{"caption": map[string]any{"text": "#c #b #a"}}),
		post("4", nil),
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "hashtags", Options{}))

	tags := h.readJSON(t, "hashtags")["hashtags"].([]any)
	require.Len(t, tags, 3)
	assert.Equal(t, map[string]any{"hashtag": "#b", "count": float64(3)}, tags[0])
	assert.Equal(t, map[string]any{"hashtag": "#a", "count": float64(2)}, tags[1])
	assert.Equal(t, map[string]any{"hashtag": "#c", "count": float64(1)}, tags[2])
}

func TestWhoCommentedGroupsByAuthor(t *testing.T) {
	client := &fakeClient{
		feed: [][]record.Record{{post("10", nil), post("11", nil)}},
		comments: map[string][]record.Record{
			"10": {{"text": "nice", "user": map[string]any{"pk": 7, "username": "eve"}}},
			"11": {
				{"text": "wow", "user": map[string]any{"pk": 8, "username": "frank"}},
				{"text": "again", "user": map[string]any{"pk": 8, "username": "frank"}},
			},
		},
	}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "wcommented", Options{}))

	users := h.readJSON(t, "users_who_commented")["users_who_commented"].([]any)
	require.Len(t, users, 2)
	assert.Equal(t, "frank", users[0].(map[string]any)["username"])
	assert.Equal(t, float64(2), users[0].(map[string]any)["counter"])
}

func TestCommentData(t *testing.T) {
	client := &fakeClient{
		feed: [][]record.Record{{post("10", nil)}},
		comments: map[string][]record.Record{
			"10": {{"text": "nice", "user": map[string]any{"pk": 7, "username": "eve"}}},
		},
	}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "commentdata", Options{}))

	comments := h.readJSON(t, "comment_data")["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, map[string]any{"post_id": "10", "id": "7", "username": "eve", "comment": "nice"}, comments[0])
}

func TestWhoTagged(t *testing.T) {
	client := &fakeClient{usertags: [][]record.Record{{
		{"id": "1", "user": map[string]any{"pk": 5, "username": "gina"}},
		{"id": "2", "user": map[string]any{"pk": 6, "username": "hank"}},
		{"id": "3", "user": map[string]any{"pk": 6, "username": "hank"}},
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "wtagged", Options{}))

	users := h.readJSON(t, "users_who_tagged")["users_who_tagged"].([]any)
	require.Len(t, users, 2)
	assert.Equal(t, "hank", users[0].(map[string]any)["username"])
}

func TestTagged(t *testing.T) {
	tags := map[string]any{"in": []any{
		map[string]any{"user": map[string]any{"pk": 5, "username": "gina"}},
	}}
	client := &fakeClient{feed: [][]record.Record{{
		post("1", record.Record{"usertags": tags}),
		post("2", record.Record{"usertags": tags}),
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "tagged", Options{}))

	users := h.readJSON(t, "tagged")["tagged"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, float64(2), users[0].(map[string]any)["post"])
}

func TestLikesSummary(t *testing.T) {
	client := &fakeClient{feed: [][]record.Record{
		{post("1", record.Record{"like_count": 1200}), post("2", record.Record{"like_count": 34})},
	}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "likes", Options{}))

	assert.Contains(t, h.out.String(), "alice got a total of 1,234 likes in 2 posts")
	doc := h.readJSON(t, "likes")
	assert.Equal(t, float64(1234), doc["like_counter"])
	assert.Equal(t, float64(2), doc["posts"])
}

func TestMediaTypeOnEmptyFeed(t *testing.T) {
	h := newHarness(t, &fakeClient{}, false)
	require.NoError(t, h.runner.Run(context.Background(), "mediatype", Options{}))
	assert.Equal(t, report.NoResults+"\n", h.out.String())
}

func TestCaptionsAndPhotoDescriptions(t *testing.T) {
	client := &fakeClient{feed: [][]record.Record{{
		post("1", record.Record{"caption": map[string]any{"text": "hello"}, "accessibility_caption": "a dog"}),
		post("2", nil),
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "captions", Options{}))
	require.NoError(t, h.runner.Run(context.Background(), "photodes", Options{}))

	assert.Equal(t, []any{"hello"}, h.readJSON(t, "captions")["captions"])
	descs := h.readJSON(t, "photodes")["descriptions"].([]any)
	require.Len(t, descs, 1)
	assert.Equal(t, "a dog", descs[0].(map[string]any)["description"])
}

func TestPhotosDownload(t *testing.T) {
	image := func(url string) map[string]any {
		return map[string]any{"candidates": []any{map[string]any{"url": url}}}
	}
	client := &fakeClient{feed: [][]record.Record{{
		post("1", record.Record{"image_versions2": image("https://cdn/1.jpg")}),
		post("2", record.Record{"media_type": 8, "carousel_media": []any{
			map[string]any{"media_type": 1, "image_versions2": image("https://cdn/2a.jpg")},
			map[string]any{"media_type": 1, "image_versions2": image("https://cdn/2b.jpg")},
		}}),
	}}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "photos", Options{Limit: 2}))

	for _, name := range []string{"alice_1.jpg", "alice_2_1.jpg"} {
		_, err := os.Stat(filepath.Join(h.export.OutputDirectory, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(h.export.OutputDirectory, "alice_2_2.jpg"))
	assert.True(t, os.IsNotExist(err), "limit caps downloaded photos")
	assert.Contains(t, h.out.String(), "Downloaded 2 photos")

	_, err = os.Stat(h.export.Path("photos", "json"))
	assert.True(t, os.IsNotExist(err), "media operations write no reports")
}

func TestProfilePictureOnPrivateTarget(t *testing.T) {
	h := newHarness(t, &fakeClient{}, true)
	require.NoError(t, h.runner.Run(context.Background(), "propic", Options{}))

	data, err := os.ReadFile(filepath.Join(h.export.OutputDirectory, "alice_propic.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/pic.jpg", string(data))
}

func TestStories(t *testing.T) {
	client := &fakeClient{stories: []record.Record{
		{"pk": 99, "video_versions": []any{map[string]any{"url": "https://cdn/s.mp4"}}},
		{"pk": 100},
	}}
	h := newHarness(t, client, false)

	require.NoError(t, h.runner.Run(context.Background(), "stories", Options{}))
	_, err := os.Stat(filepath.Join(h.export.OutputDirectory, "alice_99.mp4"))
	assert.NoError(t, err)
}

func TestUnknownOperation(t *testing.T) {
	h := newHarness(t, &fakeClient{}, false)
	assert.Error(t, h.runner.Run(context.Background(), "nope", Options{}))
}

func TestOperationsRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, op := range Operations() {
		names = append(names, op.Name)
	}
	assert.Len(t, names, 21)
	assert.IsIncreasing(t, names)
}
