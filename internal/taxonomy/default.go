package taxonomy

// defaultLabels is the label set of the WasmEdge tracker.
var defaultLabels = []string{
	"bug",
	"enhancement",
	"feature",
	"documentation",
	"question",
	"duplicate",
	"invalid",
	"wontfix",
	"good first issue",
	"help wanted",
	"dependencies",
	"security",
	"performance",
	"refactor",
	"release",
	"hacktoberfest",
	"LFX Mentorship",
	"OSPP",
	"c-AOT",
	"c-CI",
	"c-CLI",
	"c-Component-Model",
	"c-Container",
	"c-Example",
	"c-ExceptionHandling",
	"c-Executor",
	"c-GC",
	"c-Installer",
	"c-Interpreter",
	"c-JIT",
	"c-LLVM",
	"c-Loader",
	"c-Memory64",
	"c-Misc",
	"c-Plugin",
	"c-Proposal",
	"c-Runtime",
	"c-SIMD",
	"c-Test",
	"c-Thread",
	"c-Validator",
	"c-WASI",
	"c-WASI-Crypto",
	"c-WASI-NN",
	"c-WASI-Socket",
	"binding-c",
	"binding-go",
	"binding-java",
	"binding-python",
	"binding-rust",
	"platform-Android",
	"platform-Linux",
	"platform-macOS",
	"platform-OpenHarmony",
	"platform-Windows",
	"arch-aarch64",
	"arch-riscv64",
	"arch-s390x",
	"arch-x86_64",
}

var defaultTaxonomy = MustNew(defaultLabels)

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	return defaultTaxonomy
}
