package ncm_test

import (
	"encoding/base64"

	"github.com/slipstream/w4dj/ncm/ncmtest"
)

func encodeMeta(padded []byte) string {
	return base64.StdEncoding.EncodeToString(ncmtest.EncryptECB(ncmtest.MetaKey, padded))
}
