package release

import (
	"fmt"
	"path/filepath"

	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// Manifest lists the shared implementation sources, relative to the source
// root. Instance directories are flat, so each entry lands under its base name.
var Manifest = []string{
	"api.h",
	"common.h",
	"benchmark.h",
	"enc.h",
	"expand_mq.c",
	"expand_mq.h",
	"fields.h",
	"ggm_tree.c",
	"ggm_tree.h",
	"keygen.c",
	"keygen.h",
	UmbrellaHeader,
	"prg.h",
	"prg.c",
	"prg_cache.h",
	"sign.c",
	"sign.h",
	"xof.c",
	"xof.h",
	"blc/blc_default.c",
	"blc/blc_default.h",
	"blc/blc_memopt.c",
	"blc/blc_memopt.h",
	"blc/blc.h",
	"fields/fields_handling.h",
	"fields/fields_avx2.h",
	"fields/fields_avx512.h",
	"fields/fields_common.h",
	"fields/fields_ref.h",
	"fields/gf256_mult_table.h",
	"piop/piop_cache.h",
	"piop/piop_default.c",
	"piop/piop_default.h",
	"piop/piop_memopt.c",
	"piop/piop_memopt.h",
	"piop/piop.h",
	"rijndael/rijndael_aes_ni.c",
	"rijndael/rijndael_aes_ni.h",
	"rijndael/rijndael_common.h",
	"rijndael/rijndael_ct64_enc.h",
	"rijndael/rijndael_ct64.c",
	"rijndael/rijndael_ct64.h",
	"rijndael/rijndael_platform.h",
	"rijndael/rijndael_ref.c",
	"rijndael/rijndael_ref.h",
	"rijndael/rijndael_table.c",
	"rijndael/rijndael_table.h",
	"rijndael/rijndael.h",
}

const (
	// UmbrellaHeader is the generic parameter header patched in the canonical instance.
	UmbrellaHeader = "mqom2_parameters.h"

	// ParamsHeader is the per-instance generated header.
	ParamsHeader = "parameters.h"

	paramsDir = "parameters"
	signDir   = "crypto_sign"
	implDir   = "ref"
)

// InstanceName returns the release directory name of s, e.g. "mqom2_cat1_gf16_fast_r5".
func InstanceName(s variant.Scheme) string {
	return "mqom2_" + s.Label()
}

// InstanceDir returns <out>/crypto_sign/mqom2_<label>/ref.
func InstanceDir(out string, s variant.Scheme) string {
	return filepath.Join(out, signDir, InstanceName(s), implDir)
}

// ParamFile returns the per-variant parameter header name,
// e.g. "mqom2_parameters_cat1-gf16-fast-r5.h".
func ParamFile(s variant.Scheme) string {
	return fmt.Sprintf("mqom2_parameters_%s.h", s.ParamLabel())
}

// linkTarget is the relative path a non-canonical instance uses to reach name
// in the canonical instance.
func linkTarget(name string) string {
	return filepath.Join("..", "..", InstanceName(variant.Canonical), implDir, name)
}
