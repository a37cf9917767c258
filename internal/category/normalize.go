package category

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize：NFD 分解 + 大小写折叠 + 空白收敛
// 约束：建索引与查询必须走同一函数，否则查找静默失败；Caser 有状态，每次调用新建
func Normalize(s string) string {
	s = norm.NFD.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}
