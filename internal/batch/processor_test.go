package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	failures "notary-splitter/internal/errors"
	"notary-splitter/internal/merge"
	"notary-splitter/internal/password"
	"notary-splitter/internal/pdf"
	"notary-splitter/internal/pdf/pdftest"
	"notary-splitter/internal/results"
	"notary-splitter/internal/types"
)

type harness struct {
	proc     *Processor
	out      *bytes.Buffer
	ledger   *failures.Ledger
	prompter *password.Static
}

func newHarness(t *testing.T, outputDir string, opts Options, passwords ...string) *harness {
	t.Helper()
	rm, err := results.NewResultManager(outputDir)
	require.NoError(t, err)
	ledger, err := failures.NewLedger("")
	require.NoError(t, err)

	if opts.Tolerance == 0 {
		opts.Tolerance = 1.0
	}
	h := &harness{out: &bytes.Buffer{}, ledger: ledger, prompter: password.NewStatic(passwords...)}
	h.proc = NewProcessor(pdf.NewCodec(), rm, ledger, h.prompter, opts, h.out)
	return h
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	doc, err := pdf.NewCodec().Open(path)
	require.NoError(t, err)
	require.False(t, doc.Locked(), "%s should not be locked", path)
	return doc.PageCount()
}

func writeEncrypted(t *testing.T, dir, name string, pages []pdftest.Page, pw string) string {
	t.Helper()
	doc, err := pdf.NewCodec().OpenBytes(name, pdftest.Build(pages, ""))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, doc.Encrypt(pdf.Protection{Password: pw, AES: true, KeyLength: 128}, &buf))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// Pages 1-5 letter and 6-10 legal give two outputs and two runs.
func TestClassify_LetterThenLegal(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "packet.pdf",
		pdftest.Concat(pdftest.Pages(pdftest.Letter, 5), pdftest.Pages(pdftest.Legal, 5)), "Deed")
	h := newHarness(t, "", Options{})

	sum, err := h.proc.Classify(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, sum.Failed)
	require.Len(t, sum.Artifacts, 3)

	assert.Equal(t, 5, pageCount(t, filepath.Join(dir, "packet_letter.pdf")))
	assert.Equal(t, 5, pageCount(t, filepath.Join(dir, "packet_legal.pdf")))
	assert.NoFileExists(t, filepath.Join(dir, "packet_tabloid.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "packet_unknown.pdf"))

	report := readFile(t, filepath.Join(dir, "packet_logfile.txt"))
	assert.Contains(t, report, "Splitting file: packet.pdf\n")
	assert.Contains(t, report, "Title: Deed\n")
	assert.Contains(t, report, "Encryption: No Password Required\n")
	assert.Contains(t, report, "letter: 1 2 3 4 5 (qty: 5)\n\nlegal: 6 7 8 9 10 (qty: 5)\n\n")
	assert.Contains(t, report, "creating packet_letter.pdf\ncreating packet_legal.pdf\ncreating packet_logfile.txt\n")
	assert.Equal(t, report, h.out.String())
}

// A landscape letter page lands in the letter output turned a quarter clockwise.
func TestClassify_RotatedLetter(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "mixed.pdf",
		[]pdftest.Page{pdftest.Letter, pdftest.LetterLand, pdftest.Letter, pdftest.Inches(5, 5)}, "")
	h := newHarness(t, "", Options{})

	_, err := h.proc.Classify(context.Background(), []string{path})
	require.NoError(t, err)

	letter, err := pdf.NewCodec().Open(filepath.Join(dir, "mixed_letter.pdf"))
	require.NoError(t, err)
	require.Equal(t, 3, letter.PageCount())
	for page, want := range map[int]int{1: 0, 2: 90, 3: 0} {
		rot, err := letter.PageRotation(page)
		require.NoError(t, err)
		assert.Equal(t, want, rot, "page %d", page)
	}

	assert.Equal(t, 1, pageCount(t, filepath.Join(dir, "mixed_unknown.pdf")))

	report := readFile(t, filepath.Join(dir, "mixed_logfile.txt"))
	assert.Contains(t, report, "letter: 1 (qty: 1)\n\nletterRot: 2 (qty: 1)\n\nletter: 3 (qty: 1)\n\nunknown: 4 (qty: 1)\n\n")
	assert.Contains(t, report, "page 4: width: 5.000000, height: 5.000000\n")
	assert.Contains(t, report, "numLetter:  3\n")
	assert.Contains(t, report, "numUnknown: 1\n")
}

func TestClassify_ProtectedInput(t *testing.T) {
	dir := t.TempDir()
	path := writeEncrypted(t, dir, "sealed.pdf", pdftest.Pages(pdftest.Tabloid, 2), "seal")
	h := newHarness(t, "", Options{}, "nope", "seal")

	sum, err := h.proc.Classify(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 2, h.prompter.Asked())
	assert.Equal(t, 2, pageCount(t, filepath.Join(dir, "sealed_tabloid.pdf")))
	assert.Contains(t, readFile(t, filepath.Join(dir, "sealed_logfile.txt")), "Encryption: Password Required\n")
}

func TestClassify_UnreadableIsIsolated(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "a_junk.pdf")
	require.NoError(t, os.WriteFile(junk, []byte("garbage"), 0644))
	good := pdftest.WriteFile(t, dir, "b_good.pdf", pdftest.Pages(pdftest.Letter, 2), "")
	h := newHarness(t, "", Options{})

	sum, err := h.proc.Classify(context.Background(), []string{good, junk})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	assert.FileExists(t, filepath.Join(dir, "b_good_letter.pdf"))

	record, ok := h.ledger.Get(junk)
	require.True(t, ok)
	assert.Equal(t, failures.StageOpen, record.Stage)
	assert.Equal(t, types.ErrUnreadable, record.Code)
	assert.Contains(t, h.out.String(), "Error: a_junk.pdf: ")
}

func TestClassify_OutputDir(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	path := pdftest.WriteFile(t, inDir, "packet.pdf", pdftest.Pages(pdftest.Legal, 1), "")
	h := newHarness(t, outDir, Options{})

	_, err := h.proc.Classify(context.Background(), []string{path})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "packet_legal.pdf"))
	assert.FileExists(t, filepath.Join(outDir, "packet_logfile.txt"))
	assert.NoFileExists(t, filepath.Join(inDir, "packet_legal.pdf"))
}

func TestClassify_NoInputs(t *testing.T) {
	h := newHarness(t, "", Options{})
	_, err := h.proc.Classify(context.Background(), nil)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
	assert.True(t, types.IsFatal(err))
}

func TestClassify_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "packet.pdf", pdftest.Pages(pdftest.Letter, 1), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newHarness(t, "", Options{})
	_, err := h.proc.Classify(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "packet_letter.pdf"))
}

// Ten pages into three parts gives 3, 3 and 4 pages.
func TestSplit_TenIntoThree(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "packet.pdf", pdftest.Pages(pdftest.Letter, 10), "")
	h := newHarness(t, "", Options{})

	sum, err := h.proc.Split(context.Background(), []string{path}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)

	assert.Equal(t, 3, pageCount(t, filepath.Join(dir, "packet_part1.pdf")))
	assert.Equal(t, 3, pageCount(t, filepath.Join(dir, "packet_part2.pdf")))
	assert.Equal(t, 4, pageCount(t, filepath.Join(dir, "packet_part3.pdf")))

	report := readFile(t, filepath.Join(dir, "packet_logfile.txt"))
	assert.Contains(t, report, "creating packet_part1.pdf numPages: 3\n")
	assert.Contains(t, report, "creating packet_part3.pdf numPages: 4\n")
}

func TestSplit_MorePartsThanPages(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "short.pdf", pdftest.Pages(pdftest.Letter, 2), "")
	h := newHarness(t, "", Options{})

	_, err := h.proc.Split(context.Background(), []string{path}, 3)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "short_part1.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "short_part2.pdf"))
	assert.Equal(t, 2, pageCount(t, filepath.Join(dir, "short_part3.pdf")))
	assert.Contains(t, h.out.String(), "empty parts are not written")
}

func TestSplit_InvalidCount(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "packet.pdf", pdftest.Pages(pdftest.Letter, 4), "")
	h := newHarness(t, "", Options{})

	for _, parts := range []int{1, 0, -3} {
		_, err := h.proc.Split(context.Background(), []string{path}, parts)
		assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// Three inputs with two identical paths still merge, with a warning.
func TestMerge_DuplicateInputs(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	a := pdftest.WriteFile(t, inDir, "a.pdf", pdftest.Pages(pdftest.Letter, 2), "")
	b := pdftest.WriteFile(t, inDir, "b.pdf", pdftest.Pages(pdftest.Legal, 1), "")
	h := newHarness(t, outDir, Options{})
	stamp := time.Date(2024, time.July, 4, 8, 5, 9, 0, time.Local)
	h.proc.now = func() time.Time { return stamp }

	sum, err := h.proc.Merge(context.Background(), []string{a, b, a})
	require.NoError(t, err)
	require.Len(t, sum.Artifacts, 1)
	assert.Equal(t, 3, sum.Processed)

	merged := filepath.Join(outDir, merge.OutputName(stamp))
	assert.Equal(t, "202474-859_mergedFile.pdf", filepath.Base(merged))
	assert.Equal(t, 5, pageCount(t, merged))
	assert.Contains(t, h.out.String(), "duplicate input files detected")
	assert.Contains(t, h.out.String(), "creating 202474-859_mergedFile.pdf numPages: 5\n")
}

func TestMerge_PasswordExhausted(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	a := pdftest.WriteFile(t, inDir, "a.pdf", pdftest.Pages(pdftest.Letter, 1), "")
	locked := writeEncrypted(t, inDir, "locked.pdf", pdftest.Pages(pdftest.Letter, 1), "seal")
	h := newHarness(t, outDir, Options{}, "1", "2", "3")

	_, err := h.proc.Merge(context.Background(), []string{a, locked})
	assert.Equal(t, types.ErrPasswordExhausted, types.CodeOf(err))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Three wrong passwords abort the decrypt before any output is written.
func TestDecrypt_ThreeWrongPasswords(t *testing.T) {
	dir := t.TempDir()
	path := writeEncrypted(t, dir, "sealed.pdf", pdftest.Pages(pdftest.Letter, 2), "seal")
	h := newHarness(t, "", Options{}, "a", "b", "c", "seal")

	_, err := h.proc.Decrypt(context.Background(), []string{path})
	require.Error(t, err)
	assert.Equal(t, types.ErrPasswordExhausted, types.CodeOf(err))
	assert.True(t, types.IsFatal(err))
	assert.Equal(t, 3, h.prompter.Asked())
	assert.NoFileExists(t, filepath.Join(dir, "sealed_dec.pdf"))
}

func TestDecrypt_PresetPassword(t *testing.T) {
	dir := t.TempDir()
	path := writeEncrypted(t, dir, "sealed.pdf", pdftest.Pages(pdftest.Letter, 2), "seal")
	h := newHarness(t, "", Options{Password: "seal"})

	sum, err := h.proc.Decrypt(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Zero(t, h.prompter.Asked())

	doc, err := pdf.NewCodec().Open(filepath.Join(dir, "sealed_dec.pdf"))
	require.NoError(t, err)
	assert.False(t, doc.Encrypted())
	assert.Equal(t, 2, doc.PageCount())
}

func TestDecrypt_PresetWrongThenPrompted(t *testing.T) {
	dir := t.TempDir()
	path := writeEncrypted(t, dir, "sealed.pdf", pdftest.Pages(pdftest.Letter, 1), "seal")
	h := newHarness(t, "", Options{Password: "stale"}, "seal")

	_, err := h.proc.Decrypt(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, h.prompter.Asked())
	assert.FileExists(t, filepath.Join(dir, "sealed_dec.pdf"))
}

func TestDecrypt_NotEncryptedIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "open.pdf", pdftest.Pages(pdftest.Letter, 1), "")
	h := newHarness(t, "", Options{})

	sum, err := h.proc.Decrypt(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Contains(t, h.out.String(), "open.pdf is not encrypted, skipping")
	assert.NoFileExists(t, filepath.Join(dir, "open_dec.pdf"))
}

func TestEncrypt(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "open.pdf", pdftest.Pages(pdftest.Legal, 3), "")
	h := newHarness(t, "", Options{Password: "seal", EncryptAES: true, KeyLength: 128})

	sum, err := h.proc.Encrypt(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)

	out := filepath.Join(dir, "open_enc.pdf")
	doc, err := pdf.NewCodec().Open(out)
	require.NoError(t, err)
	assert.True(t, doc.PasswordRequired())
	ok, err := doc.Unlock("seal")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, doc.PageCount())

	// encrypting the encrypted copy is a skip
	sum, err = h.proc.Encrypt(context.Background(), []string{out})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Contains(t, h.out.String(), "open_enc.pdf is already encrypted, skipping")
}

func TestEncrypt_PromptedPassword(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "open.pdf", pdftest.Pages(pdftest.Letter, 1), "")
	h := newHarness(t, "", Options{EncryptAES: true, KeyLength: 128}, "typed")

	_, err := h.proc.Encrypt(context.Background(), []string{path})
	require.NoError(t, err)

	doc, err := pdf.NewCodec().Open(filepath.Join(dir, "open_enc.pdf"))
	require.NoError(t, err)
	ok, err := doc.Unlock("typed")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEncrypt_NoPasswordIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.WriteFile(t, dir, "open.pdf", pdftest.Pages(pdftest.Letter, 1), "")
	h := newHarness(t, "", Options{})

	sum, err := h.proc.Encrypt(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.NoFileExists(t, filepath.Join(dir, "open_enc.pdf"))
}

func TestResolveInputs(t *testing.T) {
	paths, err := ResolveInputs([]string{"/b/x.pdf", "/a/y.pdf", "/b/x.pdf", "/b/../b/x.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/y.pdf", "/b/x.pdf"}, paths)

	_, err = ResolveInputs(nil)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}
