package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkFile_RustImplMethod(t *testing.T) {
	src := `struct Auth {
    secret: String,
}

impl Auth {
    /// Creates a JWT token for the given user
    pub fn create_token(&self, user: &str) -> String {
        user.to_string()
    }
}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/auth.rs", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, "Auth::create_token", c.Name)
	assert.Equal(t, "src/auth.rs:Auth::create_token", c.Location)
	assert.Equal(t, "Creates a JWT token for the given user", c.Docstring)
	assert.Equal(t, 7, c.StartLine)
	assert.True(t, c.IsFunction())
	assert.Contains(t, c.Context, "pub fn create_token")
}

func TestChunkFile_RustContainerExclusion(t *testing.T) {
	src := `struct Config {
    host: String,
    port: u16,
}

enum Mode {
    Fast,
    Slow,
}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/config.rs", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, chunks, "containers with no function bodies yield no chunks")
}

func TestChunkFile_RustFreeFunction(t *testing.T) {
	src := `/// Hashes a password
/// using bcrypt
fn hash_password(pw: &str) -> String {
    pw.to_string()
}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/hash.rs", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hash_password", chunks[0].Name)
	assert.Equal(t, "Hashes a password using bcrypt", chunks[0].Docstring)
}

func TestChunkFile_DocstringBlankLineStrips(t *testing.T) {
	src := `/// This doc is orphaned

fn orphan() {}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/lib.rs", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Docstring, "a blank line breaks docstring contiguity")
}

func TestChunkFile_DocstringSkipsPlainComments(t *testing.T) {
	src := `/// Real doc text
// ordinary note
fn noted() {}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/lib.rs", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Real doc text", chunks[0].Docstring)
}

func TestChunkFile_Idempotent(t *testing.T) {
	src := `impl Server {
    fn start(&self) {}
    fn stop(&self) {}
}
`
	e := NewExtractor()
	first, err := e.ChunkFile("src/server.rs", []byte(src))
	require.NoError(t, err)
	second, err := e.ChunkFile("src/server.rs", []byte(src))
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Location, second[i].Location)
	}
}

func TestChunkFile_JSNamedFunctions(t *testing.T) {
	src := `/**
 * Validates a token
 */
function validateToken(token) {
    return token.length > 0;
}

const loadTemplate = (name) => {
    return templates[name];
};
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/auth.js", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	names := []string{chunks[0].Name, chunks[1].Name}
	assert.Contains(t, names, "validateToken")
	assert.Contains(t, names, "loadTemplate")

	for _, c := range chunks {
		if c.Name == "validateToken" {
			assert.Equal(t, "Validates a token", c.Docstring)
		}
	}
}

func TestChunkFile_JSWrapperExclusion(t *testing.T) {
	src := `function outer() {
    function inner() {
        return 1;
    }
    return inner();
}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/wrap.js", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1, "wrapper with named nested function is not itself emitted")
	assert.Equal(t, "inner", chunks[0].Name)
}

func TestChunkFile_JSSmallAnonymousExcluded(t *testing.T) {
	src := `items.forEach((item) => {
    console.log(item);
});
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/loop.js", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, chunks, "small anonymous callbacks are not indexed")
}

func TestChunkFile_UnsupportedExtensionFallback(t *testing.T) {
	src := "just some text\n"
	e := NewExtractor()
	chunks, err := e.ChunkFile("notes.txt", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, KindFile, c.Kind)
	assert.Equal(t, "notes.txt", c.Location)
	assert.False(t, c.IsFunction())
}

func TestChunkFile_Truncation(t *testing.T) {
	body := "fn big() {\n"
	for len(body) < maxChunkBytes+100 {
		body += "    let x = 1;\n"
	}
	body += "}\n"

	e := NewExtractor()
	chunks, err := e.ChunkFile("src/big.rs", []byte(body))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Code, "... (truncated)")
	assert.LessOrEqual(t, len(chunks[0].Code), maxChunkBytes+32)
}

func TestFilePathOf(t *testing.T) {
	assert.Equal(t, "src/auth.rs", FilePathOf("src/auth.rs:Auth::create_token"))
	assert.Equal(t, "src/auth.rs", FilePathOf("src/auth.rs:hash_password"))
	assert.Equal(t, "src/auth.rs", FilePathOf("src/auth.rs"))
	assert.Equal(t, `C:\code\auth.rs`, FilePathOf(`C:\code\auth.rs:create`))
	assert.Equal(t, `C:\code\auth.rs`, FilePathOf(`C:\code\auth.rs:Auth::create`))
	assert.Equal(t, `C:\code\auth.rs`, FilePathOf(`C:\code\auth.rs`))
}

func TestChunkFile_ImplMethodFilePath(t *testing.T) {
	src := `impl Auth {
    fn create_token(&self) {}
}
`
	e := NewExtractor()
	chunks, err := e.ChunkFile("src/auth.rs", []byte(src))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "src/auth.rs", chunks[0].FilePath())
}
