package classify

import (
	"context"
	"strings"
)

// keywordRule maps substrings of the combined leg text to one label. Rules
// are checked in order; the first hit wins.
type keywordRule struct {
	keywords []string
	label    string
}

var purposeRules = []keywordRule{
	{[]string{"工资", "薪酬", "薪资", "奖金", "社保", "公积金"}, "职工薪酬"},
	{[]string{"税", "完税"}, "税费"},
	{[]string{"差旅", "出差", "机票", "住宿"}, "差旅费"},
	{[]string{"办公", "文具", "用品"}, "办公费"},
	{[]string{"水费", "电费", "水电", "燃气"}, "水电费"},
	{[]string{"租金", "房租", "租赁"}, "租赁费"},
	{[]string{"运费", "物流", "快递", "运输"}, "运输费"},
	{[]string{"广告", "宣传", "推广"}, "广告宣传费"},
	{[]string{"维修", "修理"}, "维修费"},
	{[]string{"利息"}, "财务费用"},
	{[]string{"材料", "采购", "货款", "购货"}, "材料采购"},
}

var cashFlowRules = []keywordRule{
	{[]string{"工资", "薪酬", "薪资", "奖金", "社保", "公积金"}, "支付给职工以及为职工支付的现金"},
	{[]string{"税", "完税"}, "支付的各项税费"},
	{[]string{"设备", "工程", "固定资产", "在建", "装修"}, "购建固定资产、无形资产和其他长期资产支付的现金"},
	{[]string{"投资", "股权", "理财"}, "投资支付的现金"},
	{[]string{"还款", "借款", "偿还", "贷款本金"}, "偿还债务支付的现金"},
	{[]string{"利息", "股利", "分红"}, "分配股利、利润或偿付利息支付的现金"},
	{[]string{"材料", "采购", "货款", "购货", "劳务"}, "购买商品、接受劳务支付的现金"},
	{[]string{"办公", "差旅", "水电", "租金", "房租", "运费", "快递", "广告", "维修"}, "支付其他与经营活动有关的现金"},
}

// Keyword labels legs by substring rules over the summary, account name and
// auxiliary text. It needs no network and stands in for the LLM classifier
// when no provider is configured.
type Keyword struct{}

func match(rules []keywordRule, text, fallback string) string {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.label
			}
		}
	}
	return fallback
}

func (Keyword) ClassifyPurpose(_ context.Context, summary, account, auxiliary string) (string, error) {
	return match(purposeRules, summary+account+auxiliary, DefaultPurpose), nil
}

func (Keyword) ClassifyCashFlow(_ context.Context, summary, account, auxiliary string) (string, error) {
	return match(cashFlowRules, summary+account+auxiliary, DefaultCashFlow), nil
}
