package media

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

type fakeTransport struct {
	mu          sync.Mutex
	texts       []string
	uploads     []Upload
	uploadData  []string
	downloads   int
	reuploads   int
	payload     string
	downloadErr []error
	reuploadErr error
	sendErr     error
	seenPaths   []string
}

func (f *fakeTransport) SendText(ctx context.Context, to types.JID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeTransport) Download(ctx context.Context, src *Descriptor, dst *ScratchFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seenPaths = append(f.seenPaths, dst.Path())
	call := f.downloads
	f.downloads++
	if call < len(f.downloadErr) && f.downloadErr[call] != nil {
		_, _ = dst.WriteString("garbage")
		return f.downloadErr[call]
	}
	_, err := dst.WriteString(f.payload)
	return err
}

func (f *fakeTransport) RequestReupload(ctx context.Context, src *Descriptor) (*Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reuploads++
	if f.reuploadErr != nil {
		return nil, f.reuploadErr
	}
	refreshed := *src
	return &refreshed, nil
}

func (f *fakeTransport) SendMedia(ctx context.Context, to types.JID, upload Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(upload.Path)
	if err != nil {
		return err
	}
	f.uploads = append(f.uploads, upload)
	f.uploadData = append(f.uploadData, string(data))
	return f.sendErr
}

func newTestPipeline(t *testing.T, transport Transport, maxBytes int64) (*Pipeline, *ScratchDir) {
	t.Helper()
	dir, err := NewScratchDir(t.TempDir())
	require.NoError(t, err)
	return NewPipeline(transport, dir, maxBytes), dir
}

func assertScratchEmpty(t *testing.T, dir *ScratchDir) {
	t.Helper()
	entries, err := os.ReadDir(dir.Path())
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch dir should be empty")
}

func videoDescriptor(length uint64) *Descriptor {
	return &Descriptor{
		Kind:       KindVideo,
		MimeType:   "video/mp4",
		FileLength: length,
		Caption:    "original",
		Source: Source{
			Chat:      types.NewJID("5491100000001", types.DefaultUserServer),
			MessageID: "M1",
			Message:   &waE2E.Message{VideoMessage: &waE2E.VideoMessage{Mimetype: proto.String("video/mp4")}},
		},
	}
}

var (
	testTarget    = types.NewJID("5491100000009", types.DefaultUserServer)
	testRequester = types.NewJID("5491100000001", types.DefaultUserServer)
)

func TestTransferForwardsAndCleansUp(t *testing.T) {
	transport := &fakeTransport{payload: "video-bytes"}
	pipeline, dir := newTestPipeline(t, transport, 120*1024*1024)

	outcome, err := pipeline.Transfer(context.Background(), Request{
		Media:     videoDescriptor(50 * 1024 * 1024),
		Target:    testTarget,
		Requester: testRequester,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeForwarded, outcome)

	require.Len(t, transport.uploads, 1)
	assert.Equal(t, KindVideo, transport.uploads[0].Kind)
	assert.Equal(t, "original", transport.uploads[0].Caption)
	assert.Equal(t, "video-bytes", transport.uploadData[0])
	assert.Empty(t, transport.texts)
	assertScratchEmpty(t, dir)
}

func TestTransferCaptionOverride(t *testing.T) {
	transport := &fakeTransport{payload: "x"}
	pipeline, _ := newTestPipeline(t, transport, 1024)

	_, err := pipeline.Transfer(context.Background(), Request{
		Media:           videoDescriptor(1),
		Target:          testTarget,
		CaptionOverride: "override",
	})
	require.NoError(t, err)
	assert.Equal(t, "override", transport.uploads[0].Caption)
}

func TestTransferSizeGate(t *testing.T) {
	const limit = 120 * 1024 * 1024
	transport := &fakeTransport{payload: "never"}
	pipeline, dir := newTestPipeline(t, transport, limit)

	outcome, err := pipeline.Transfer(context.Background(), Request{
		Media:     videoDescriptor(limit + 1),
		Target:    testTarget,
		Requester: testRequester,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeTooLarge, outcome)
	require.Len(t, transport.texts, 1)
	assert.Contains(t, transport.texts[0], "120MB")
	assert.Zero(t, transport.downloads)
	assert.Empty(t, transport.uploads)
	assertScratchEmpty(t, dir)
}

func TestTransferUnknownLengthPassesGate(t *testing.T) {
	transport := &fakeTransport{payload: "x"}
	pipeline, _ := newTestPipeline(t, transport, 1)

	outcome, err := pipeline.Transfer(context.Background(), Request{Media: videoDescriptor(0), Target: testTarget})
	require.NoError(t, err)
	assert.Equal(t, OutcomeForwarded, outcome)
	assert.Len(t, transport.uploads, 1)
}

func TestTransferDownloadFailureCleansUp(t *testing.T) {
	transport := &fakeTransport{downloadErr: []error{errors.New("connection reset")}}
	pipeline, dir := newTestPipeline(t, transport, 1024)

	_, err := pipeline.Transfer(context.Background(), Request{Media: videoDescriptor(10), Target: testTarget})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, transport.reuploads)
	assert.Empty(t, transport.uploads)
	assertScratchEmpty(t, dir)
}

func TestTransferUploadFailureCleansUp(t *testing.T) {
	transport := &fakeTransport{payload: "x", sendErr: errors.New("upload refused")}
	pipeline, dir := newTestPipeline(t, transport, 1024)

	_, err := pipeline.Transfer(context.Background(), Request{Media: videoDescriptor(10), Target: testTarget})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload refused")
	assertScratchEmpty(t, dir)
}

func TestTransferRequestsReuploadWhenExpired(t *testing.T) {
	transport := &fakeTransport{
		payload:     "fresh",
		downloadErr: []error{ErrMediaExpired},
	}
	pipeline, dir := newTestPipeline(t, transport, 1024)

	outcome, err := pipeline.Transfer(context.Background(), Request{Media: videoDescriptor(10), Target: testTarget})
	require.NoError(t, err)
	assert.Equal(t, OutcomeForwarded, outcome)
	assert.Equal(t, 1, transport.reuploads)
	assert.Equal(t, 2, transport.downloads)
	assert.Equal(t, "fresh", transport.uploadData[0])
	assertScratchEmpty(t, dir)
}

func TestTransferReuploadFailure(t *testing.T) {
	transport := &fakeTransport{
		downloadErr: []error{ErrMediaExpired},
		reuploadErr: errors.New("sender offline"),
	}
	pipeline, dir := newTestPipeline(t, transport, 1024)

	_, err := pipeline.Transfer(context.Background(), Request{Media: videoDescriptor(10), Target: testTarget})
	require.Error(t, err)
	assert.Equal(t, 1, transport.downloads)
	assertScratchEmpty(t, dir)
}

func TestTransferAudioKeepsPTT(t *testing.T) {
	transport := &fakeTransport{payload: "OggS"}
	pipeline, _ := newTestPipeline(t, transport, 1024)

	desc := &Descriptor{
		Kind:     KindAudio,
		MimeType: "audio/ogg; codecs=opus",
		PTT:      true,
		Caption:  "ignored",
		Source:   Source{MessageID: "A1"},
	}
	_, err := pipeline.Transfer(context.Background(), Request{Media: desc, Target: testTarget, CaptionOverride: "also ignored"})
	require.NoError(t, err)

	require.Len(t, transport.uploads, 1)
	assert.True(t, transport.uploads[0].PTT)
	assert.Empty(t, transport.uploads[0].Caption)
	assert.Equal(t, ".ogg", transport.seenPaths[0][len(transport.seenPaths[0])-4:])
}

func TestTransferSniffsMissingMimeType(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"
	transport := &fakeTransport{payload: png}
	pipeline, _ := newTestPipeline(t, transport, 1024)

	desc := &Descriptor{Kind: KindImage, Source: Source{MessageID: "I1"}}
	_, err := pipeline.Transfer(context.Background(), Request{Media: desc, Target: testTarget})
	require.NoError(t, err)
	assert.Equal(t, "image/png", transport.uploads[0].MimeType)
}

func TestTransferConcurrentRunsUseDistinctFiles(t *testing.T) {
	transport := &fakeTransport{payload: "x"}
	pipeline, dir := newTestPipeline(t, transport, 1024)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pipeline.Transfer(context.Background(), Request{Media: videoDescriptor(1), Target: testTarget})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{})
	for _, p := range transport.seenPaths {
		seen[p] = struct{}{}
	}
	assert.Len(t, seen, 8)
	assertScratchEmpty(t, dir)
}
