package remote

import (
	"encoding/json"
	"fmt"
)

// Key は操作プレフィックスとパラメータからキャッシュキーを導出する。
// パラメータは正規化したJSON（マップのキーはソート済み）に変換するため、
// 同じ内容のパラメータであればフィールドの順序によらず同じキーになる。
func Key(prefix string, params any) string {
	if params == nil {
		return prefix
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return prefix + ":" + string(raw)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return prefix + ":" + string(raw)
	}
	return prefix + ":" + string(canonical)
}
