package release

import (
	"fmt"
	"strings"
)

const (
	genericGuardDefine = "#define __MQOM2_PARAMETERS_GENERIC_H__\n"
	paramsInclude      = "\n#include \"" + ParamsHeader + "\"\n"
	nestedParamsPrefix = "\"" + paramsDir + "/mqom2"
	flatParamsPrefix   = "\"mqom2"
)

// PatchUmbrella makes the generic parameter header pick up the sibling
// parameters.h and resolve per-variant headers from the instance directory
// instead of a parameters/ subdirectory.
func PatchUmbrella(content string) (string, error) {
	if !strings.Contains(content, genericGuardDefine) {
		return "", fmt.Errorf("%w: %q not found", ErrPatchMarker, strings.TrimSpace(genericGuardDefine))
	}
	content = strings.Replace(content, genericGuardDefine, genericGuardDefine+paramsInclude, 1)
	content = strings.ReplaceAll(content, nestedParamsPrefix, flatParamsPrefix)
	return content, nil
}
