package equity

// Score 计算0-100的公平分，定点整数运算
// 低收入、高污染、公共交通薄弱各自独立推高分数，人口密度给予较小的正向加成。
// 四项相加后做一次截断除法，加法顺序与除法位置不可重排，
// 否则不同实现之间无法逐位复现。
func Score(d UrbanData) int {
	raw := (11-d.IncomeLevel)*10 +
		d.PollutionLevel*5 +
		(11-d.TransportScore)*8 +
		d.Density*3

	score := raw / 4
	if score > 100 {
		score = 100
	}
	return score
}
