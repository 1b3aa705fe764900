package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"photoGalleryAi/internal/events"
	"photoGalleryAi/internal/media"
	"photoGalleryAi/internal/photos"
	"photoGalleryAi/internal/storage"
	"photoGalleryAi/internal/vision"
)

type fakeBlobs struct {
	objects []media.Object
	data    map[string][]byte
	listErr error
}

func (f *fakeBlobs) Put(_ context.Context, in media.PutInput) (media.PutResult, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return media.PutResult{}, err
	}
	f.data[in.Key] = data
	return media.PutResult{Key: in.Key, URL: f.PublicURL(in.Key)}, nil
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.data[key]
	if !ok {
		return nil, media.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeBlobs) List(context.Context) ([]media.Object, error) {
	return f.objects, f.listErr
}

func (f *fakeBlobs) PublicURL(key string) string {
	return media.JoinPublicURL("https://pub.example", key)
}

type scriptedAnalyzer struct {
	answers map[string]string
	fail    map[string]error
	prompts []string
}

func (s *scriptedAnalyzer) Describe(_ context.Context, image []byte, prompt string) (vision.Description, error) {
	s.prompts = append(s.prompts, prompt)
	key := string(image)
	if err := s.fail[key]; err != nil {
		return vision.Description{}, err
	}
	return vision.Description{Text: s.answers[key], Raw: json.RawMessage(`{"ok":true}`)}, nil
}

type failingPut struct {
	storage.Store
}

func (failingPut) Put(context.Context, string, []byte) error { return errors.New("kv unavailable") }

var uploaded = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Blob bytes double as the analyzer lookup key.
func newFixture() (*fakeBlobs, *scriptedAnalyzer) {
	blobs := &fakeBlobs{
		objects: []media.Object{
			{Key: "albums/", Uploaded: uploaded},
			{Key: "generated/old-1.png", Uploaded: uploaded},
			{Key: "house/living_room/sofa.jpg", Uploaded: uploaded},
			{Key: "misc/kitchen.jpg", Uploaded: uploaded},
			{Key: "broken.jpg", Uploaded: uploaded},
			{Key: "vanished.jpg", Uploaded: uploaded},
		},
		data: map[string][]byte{
			"generated/old-1.png":        []byte("gen"),
			"house/living_room/sofa.jpg": []byte("sofa"),
			"misc/kitchen.jpg":           []byte("kitchen"),
			"broken.jpg":                 []byte("broken"),
		},
	}
	analyzer := &scriptedAnalyzer{
		answers: map[string]string{
			"sofa":    "This looks like a bedroom. Categories: sofa, cushion, lamp",
			"kitchen": "A modern Kitchen with a large island and bright pendant lights",
		},
		fail: map[string]error{"broken": errors.New("model overloaded")},
	}
	return blobs, analyzer
}

func TestRunFoldsOutcomes(t *testing.T) {
	blobs, analyzer := newFixture()
	meta := storage.NewInMemoryStore()
	broker := events.NewBroker()
	sub := broker.Subscribe()

	ingestor := New(Deps{Blobs: blobs, Catalog: photos.NewCatalog(meta), Analyzer: analyzer, Events: broker})
	outcomes, err := ingestor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Outcome{
		{Key: "house/living_room/sofa.jpg", Status: StatusProcessed, Room: "living room", Type: photos.TypeOriginal},
		{Key: "misc/kitchen.jpg", Status: StatusProcessed, Room: "kitchen", Type: photos.TypeOriginal},
		{Key: "broken.jpg", Status: StatusProcessed, Room: photos.RoomUncategorized, Type: photos.TypeOriginal},
		{Key: "vanished.jpg", Status: StatusSkipped},
	}, outcomes)
	assert.Len(t, analyzer.prompts, 3)
	assert.Contains(t, analyzer.prompts[0], `"house/living_room/sofa.jpg"`)
	assert.Len(t, sub, 4)

	keys, err := meta.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.jpg", "house/living_room/sofa.jpg", "misc/kitchen.jpg"}, keys)
}

func TestRunPathOverridesTextRoom(t *testing.T) {
	blobs, analyzer := newFixture()
	catalog := photos.NewCatalog(storage.NewInMemoryStore())
	_, err := New(Deps{Blobs: blobs, Catalog: catalog, Analyzer: analyzer}).Run(context.Background())
	require.NoError(t, err)

	rec, ok, err := catalog.FindByPublicURL(context.Background(), "https://pub.example/house/living_room/sofa.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "living room", rec.Room)
	assert.Equal(t, []string{"sofa", "cushion", "lamp"}, rec.Categories)
	assert.Equal(t, "living room", rec.Analysis.ExtractedRoom)
	assert.Equal(t, photos.TypeOriginal, rec.Type)
	assert.True(t, uploaded.Equal(rec.LastModified))
}

func TestRunFallbackCategoriesAndFailurePlaceholder(t *testing.T) {
	blobs, analyzer := newFixture()
	catalog := photos.NewCatalog(storage.NewInMemoryStore())
	_, err := New(Deps{Blobs: blobs, Catalog: catalog, Analyzer: analyzer}).Run(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	kitchen, ok, err := catalog.FindByPublicURL(ctx, "https://pub.example/misc/kitchen.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kitchen", kitchen.Room)
	assert.Equal(t, []string{"modern", "Kitchen", "with", "large", "island"}, kitchen.Categories)

	broken, ok, err := catalog.FindByPublicURL(ctx, "https://pub.example/broken.jpg")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, broken.Analysis)
	assert.Equal(t, FailedDescription, broken.Analysis.Description)
	assert.Equal(t, "model overloaded", broken.Analysis.Error)
	assert.Nil(t, broken.Analysis.RawAIResponse)
	assert.Equal(t, photos.RoomUncategorized, broken.Room)
	assert.Equal(t, []string{}, broken.Categories)
}

func TestRunTwiceIsDeterministic(t *testing.T) {
	blobs, analyzer := newFixture()
	meta := storage.NewInMemoryStore()
	ingestor := New(Deps{Blobs: blobs, Catalog: photos.NewCatalog(meta), Analyzer: analyzer})
	ctx := context.Background()

	snapshot := func() map[string]string {
		keys, err := meta.Keys(ctx)
		require.NoError(t, err)
		out := map[string]string{}
		for _, k := range keys {
			raw, err := meta.Get(ctx, k)
			require.NoError(t, err)
			out[k] = string(raw)
		}
		return out
	}

	_, err := ingestor.Run(ctx)
	require.NoError(t, err)
	first := snapshot()
	_, err = ingestor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot())
}

func TestRunSaveFailureIsPerItem(t *testing.T) {
	blobs, analyzer := newFixture()
	catalog := photos.NewCatalog(failingPut{Store: storage.NewInMemoryStore()})
	outcomes, err := New(Deps{Blobs: blobs, Catalog: catalog, Analyzer: analyzer}).Run(context.Background())
	require.NoError(t, err)

	statuses := map[Status]int{}
	for _, o := range outcomes {
		statuses[o.Status]++
	}
	assert.Equal(t, map[Status]int{StatusFailed: 3, StatusSkipped: 1}, statuses)
}

func TestRunIgnoresCancellation(t *testing.T) {
	blobs, analyzer := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := New(Deps{Blobs: blobs, Catalog: photos.NewCatalog(storage.NewInMemoryStore()), Analyzer: analyzer}).Run(ctx)
	require.NoError(t, err)
	assert.Len(t, outcomes, 4)
}

func TestRunFailsWhenListingFails(t *testing.T) {
	blobs, analyzer := newFixture()
	blobs.listErr = errors.New("bucket gone")
	_, err := New(Deps{Blobs: blobs, Catalog: photos.NewCatalog(storage.NewInMemoryStore()), Analyzer: analyzer}).Run(context.Background())
	assert.ErrorContains(t, err, "bucket gone")
}

func TestEligible(t *testing.T) {
	keys := []string{"a.jpg", "dir/", "generated/x.png", "generatedx.png", "x/generated/y.png"}
	var eligible []string
	for _, k := range keys {
		if Eligible(k) {
			eligible = append(eligible, k)
		}
	}
	sort.Strings(eligible)
	assert.Equal(t, []string{"a.jpg", "generatedx.png", "x/generated/y.png"}, eligible)
}

func TestFailuresCombinesFailedOutcomes(t *testing.T) {
	assert.NoError(t, Failures([]Outcome{{Key: "a.jpg", Status: StatusProcessed}, {Key: "b.jpg", Status: StatusSkipped}}))

	err := Failures([]Outcome{
		{Key: "a.jpg", Status: StatusFailed, Error: "disk full"},
		{Key: "b.jpg", Status: StatusProcessed},
		{Key: "c.jpg", Status: StatusFailed, Error: "timeout"},
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "a.jpg: disk full")
	assert.Contains(t, err.Error(), "c.jpg: timeout")
}
