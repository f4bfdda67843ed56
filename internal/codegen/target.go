package codegen

// Architecture describes the target triple, data layout, and pointer
// geometry an emitted module is built against. Grounded on
// passes/llir/target.py.
type Architecture struct {
	Triple     string
	DataLayout string
	PtrSize    int
	PtrAlign   int
}

// Targets is the fixed set of architectures this compiler can emit for,
// keyed by the name accepted on the command line. Values are copied
// verbatim from passes/llir/target.py's TARGETS table.
var Targets = map[string]Architecture{
	"x86_64": {
		Triple:     "x86_64-pc-linux-gnu",
		DataLayout: "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128",
		PtrSize:    8, PtrAlign: 8,
	},
	"amd64": {
		Triple:     "amd64-pc-linux-gnu",
		DataLayout: "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128",
		PtrSize:    8, PtrAlign: 8,
	},
	"i686": {
		Triple:     "i686-pc-linux-gnu",
		DataLayout: "e-m:e-p:32:32-p270:32:32-p271:32:32-p272:64:64-f64:32:64-f80:32-n8:16:32-S128",
		PtrSize:    4, PtrAlign: 4,
	},
	"i386": {
		Triple:     "i386-pc-linux-gnu",
		DataLayout: "e-m:e-p:32:32-p270:32:32-p271:32:32-p272:64:64-f64:32:64-f80:32-n8:16:32-S128",
		PtrSize:    4, PtrAlign: 4,
	},
	"aarch64": {
		Triple:     "aarch64-unknown-linux-gnu",
		DataLayout: "e-m:e-i8:8:32-i16:16:32-i64:64-i128:128-n32:64-S128",
		PtrSize:    8, PtrAlign: 8,
	},
	"armv7": {
		Triple:     "armv7-unknown-linux-gnueabi",
		DataLayout: "e-m:e-p:32:32-Fi8-i64:64-v128:64:128-a:0:32-n32-S64",
		PtrSize:    4, PtrAlign: 4,
	},
	"armv6": {
		Triple:     "armv6-unknown-linux-gnueabi",
		DataLayout: "e-m:e-p:32:32-Fi8-i64:64-v128:64:128-a:0:32-n32-S64",
		PtrSize:    4, PtrAlign: 4,
	},
	"armv5": {
		Triple:     "armv5-unknown-linux-gnueabi",
		DataLayout: "e-m:e-p:32:32-Fi8-i64:64-v128:64:128-a:0:32-n32-S64",
		PtrSize:    4, PtrAlign: 4,
	},
	"armv4": {
		Triple:     "armv4-unknown-linux-gnueabi",
		DataLayout: "e-m:e-p:32:32-Fi8-i64:64-v128:64:128-a:0:32-n32-S64",
		PtrSize:    4, PtrAlign: 4,
	},
}
