package resolve

// standardHeaders are the C++ standard library headers plus the C standard
// headers, in both their <cxxx> and <xxx.h> spellings
var standardHeaders = []string{
	// C++ library
	"algorithm", "any", "array", "atomic", "barrier", "bit", "bitset",
	"charconv", "chrono", "codecvt", "compare", "complex", "concepts",
	"condition_variable", "coroutine", "deque", "exception", "execution",
	"expected", "filesystem", "flat_map", "flat_set", "format",
	"forward_list", "fstream", "functional", "future", "generator",
	"initializer_list", "iomanip", "ios", "iosfwd", "iostream", "istream",
	"iterator", "latch", "limits", "list", "locale", "map", "mdspan",
	"memory", "memory_resource", "mutex", "new", "numbers", "numeric",
	"optional", "ostream", "print", "queue", "random", "ranges", "ratio",
	"regex", "scoped_allocator", "semaphore", "set", "shared_mutex",
	"source_location", "span", "spanstream", "sstream", "stack",
	"stacktrace", "stdexcept", "stdfloat", "stop_token", "streambuf",
	"string", "string_view", "strstream", "syncstream", "system_error",
	"thread", "tuple", "type_traits", "typeindex", "typeinfo",
	"unordered_map", "unordered_set", "utility", "valarray", "variant",
	"vector", "version",

	// C library, C++ spelling
	"cassert", "ccomplex", "cctype", "cerrno", "cfenv", "cfloat",
	"cinttypes", "ciso646", "climits", "clocale", "cmath", "csetjmp",
	"csignal", "cstdalign", "cstdarg", "cstdbool", "cstddef", "cstdint",
	"cstdio", "cstdlib", "cstring", "ctgmath", "ctime", "cuchar", "cwchar",
	"cwctype",

	// C library, C spelling
	"assert.h", "complex.h", "ctype.h", "errno.h", "fenv.h", "float.h",
	"inttypes.h", "iso646.h", "limits.h", "locale.h", "math.h", "setjmp.h",
	"signal.h", "stdalign.h", "stdarg.h", "stdatomic.h", "stdbool.h",
	"stddef.h", "stdint.h", "stdio.h", "stdlib.h", "stdnoreturn.h",
	"string.h", "tgmath.h", "threads.h", "time.h", "uchar.h", "wchar.h",
	"wctype.h",
}

// SystemHeaders is a set of names recognized as system includes
type SystemHeaders map[string]struct{}

// NewSystemHeaders returns the standard header set extended with extra names
func NewSystemHeaders(extra ...string) SystemHeaders {
	s := make(SystemHeaders, len(standardHeaders)+len(extra))
	for _, name := range standardHeaders {
		s[name] = struct{}{}
	}
	for _, name := range extra {
		s[normalize(name)] = struct{}{}
	}
	return s
}

// Contains reports whether target names a system header
func (s SystemHeaders) Contains(target string) bool {
	_, ok := s[normalize(target)]
	return ok
}
