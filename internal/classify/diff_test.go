package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gitDiff = `diff --git clang/lib/Sema/Sema.cpp clang/lib/Sema/Sema.cpp
index 1111111..2222222 100644
--- clang/lib/Sema/Sema.cpp
+++ clang/lib/Sema/Sema.cpp
@@ -10 +10,2 @@ void f() {
-  int x=1;
+  int x = 1;
+  --- not a header
@@ -40,0 +42 @@
+  return;
diff --git llvm/test/CodeGen/x.ll llvm/test/CodeGen/x.ll
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ llvm/test/CodeGen/x.ll
@@ -0,0 +1 @@
+; RUN: llc %s
diff --git old.txt old.txt
deleted file mode 100644
--- old.txt
+++ /dev/null
@@ -1 +0,0 @@
-gone
`

const formatPatch = "--- lib/a.cpp\t(before formatting)\n" +
	"+++ lib/a.cpp\t(after formatting)\n" +
	"@@ -3,1 +3,1 @@\n" +
	"-int  a;\n" +
	"+int a;\n" +
	"@@ -9 +9 @@\n" +
	"-int  b;\n" +
	"+int b;\n" +
	"--- lib/b.cpp\t(before formatting)\n" +
	"+++ lib/b.cpp\t(after formatting)\n" +
	"@@ -1,2 +1 @@\n" +
	"-void g()\n" +
	"-{}\n" +
	"+void g() {}\n"

func TestParseUnifiedDiffGit(t *testing.T) {
	files := ParseUnifiedDiff([]byte(gitDiff))
	require.Len(t, files, 3)

	assert.Equal(t, "clang/lib/Sema/Sema.cpp", files[0].Path())
	require.Len(t, files[0].Hunks, 2)
	assert.Equal(t, 10, files[0].Hunks[0].OldStart)
	assert.Equal(t, 1, files[0].Hunks[0].OldLines)
	assert.Equal(t, 2, files[0].Hunks[0].NewLines)
	assert.Len(t, files[0].Hunks[0].Lines, 3, "a removed line that looks like a header stays in the hunk")
	assert.Equal(t, 0, files[0].Hunks[1].OldLines)

	assert.Equal(t, "llvm/test/CodeGen/x.ll", files[1].Path())
	assert.Equal(t, "/dev/null", files[1].OldPath)
	assert.Equal(t, "old.txt", files[2].Path(), "deletions are keyed by the old path")
}

func TestParseUnifiedDiffRoundTrip(t *testing.T) {
	var rendered string
	for _, f := range ParseUnifiedDiff([]byte(gitDiff)) {
		rendered += f.String()
	}
	assert.Equal(t, gitDiff, rendered)
}

func TestParseUnifiedDiffWithoutGitHeaders(t *testing.T) {
	files := ParseUnifiedDiff([]byte(formatPatch))
	require.Len(t, files, 2)
	assert.Equal(t, "lib/a.cpp", files[0].Path())
	assert.Len(t, files[0].Hunks, 2)
	assert.Equal(t, "lib/b.cpp", files[1].Path())
	assert.Equal(t, 2, files[1].Hunks[0].OldLines)
}

func TestParseUnifiedDiffEmpty(t *testing.T) {
	assert.Empty(t, ParseUnifiedDiff(nil))
	assert.Empty(t, ParseUnifiedDiff([]byte("\n")))
}

func TestFilterDiff(t *testing.T) {
	filtered := FilterDiff([]byte(gitDiff), NewIgnore(IgnorePrefix, []string{"llvm/test/", "old.txt"}))
	files := ParseUnifiedDiff(filtered)
	require.Len(t, files, 1)
	assert.Equal(t, "clang/lib/Sema/Sema.cpp", files[0].Path())

	assert.Equal(t, gitDiff, string(FilterDiff([]byte(gitDiff), nil)))
}
