package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTargetDataAgreesWithEveryTableEntry(t *testing.T) {
	for name, arch := range Targets {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, CheckTargetData(arch))
		})
	}
}

func TestCheckTargetDataRejectsUnknownTriple(t *testing.T) {
	err := CheckTargetData(Architecture{Triple: "not-a-real-triple"})
	assert.Error(t, err)
}

func TestVerifyModuleAcceptsGeneratedLLIR(t *testing.T) {
	prog := identityMLIR(t, "main")
	out, err := GenerateLLIR(prog, "main", Targets["x86_64"])
	require.NoError(t, err)

	assert.NoError(t, VerifyModule(out))
}

func TestVerifyModuleRejectsMalformedIR(t *testing.T) {
	err := VerifyModule("define void @main() {\nret void\n")
	assert.Error(t, err)
}
