package deck

import (
	"fmt"
	"strings"

	"github.com/arcanaland/lumen/internal/card"
)

type entry struct {
	en, zh     string
	kwEN, kwZH []string
	detailEN   string
	detailZH   string
}

var majorArcana = []entry{
	{"The Fool", "愚者", []string{"Beginnings", "Innocence", "Leap of Faith"}, []string{"新的開始", "純真", "信仰之躍"}, "", ""},
	{"The Magician", "魔術師", []string{"Manifestation", "Resourcefulness", "Power"}, []string{"顯化", "資源豐富", "力量"}, "", ""},
	{"The High Priestess", "女祭司", []string{"Intuition", "Unconscious", "Inner Voice"}, []string{"直覺", "潛意識", "內在聲音"}, "", ""},
	{"The Empress", "皇后", []string{"Fertility", "Nature", "Abundance"}, []string{"豐饒", "自然", "富足"}, "", ""},
	{"The Emperor", "皇帝", []string{"Authority", "Structure", "Control"}, []string{"權威", "結構", "控制"}, "", ""},
	{"The Hierophant", "教皇", []string{"Tradition", "Conformity", "Morality"}, []string{"傳統", "從眾", "道德"}, "", ""},
	{"The Lovers", "戀人", []string{"Partnership", "Duality", "Union"}, []string{"伴侶", "二元性", "結合"}, "", ""},
	{"The Chariot", "戰車", []string{"Control", "Willpower", "Victory"}, []string{"控制", "意志力", "勝利"}, "", ""},
	{"Strength", "力量", []string{"Courage", "Persuasion", "Influence"}, []string{"勇氣", "說服", "影響力"}, "", ""},
	{"The Hermit", "隱士", []string{"Introspection", "Solitude", "Guidance"}, []string{"內省", "獨處", "指引"}, "", ""},
	{"Wheel of Fortune", "命運之輪", []string{"Karma", "Cycles", "Destiny"}, []string{"業力", "循環", "命運"}, "", ""},
	{"Justice", "正義", []string{"Fairness", "Truth", "Law"}, []string{"公平", "真理", "法律"}, "", ""},
	{"The Hanged Man", "吊人", []string{"Pause", "Surrender", "New Perspective"}, []string{"暫停", "臣服", "新觀點"}, "", ""},
	{"Death", "死神", []string{"Endings", "Change", "Transformation"}, []string{"結束", "改變", "轉化"}, "", ""},
	{"Temperance", "節制", []string{"Balance", "Moderation", "Patience"}, []string{"平衡", "適度", "耐心"}, "", ""},
	{"The Devil", "惡魔", []string{"Shadow Self", "Attachment", "Restriction"}, []string{"陰影自我", "依戀", "束縛"}, "", ""},
	{"The Tower", "高塔", []string{"Sudden Change", "Upheaval", "Chaos"}, []string{"驟變", "動盪", "混亂"}, "", ""},
	{"The Star", "星星", []string{"Hope", "Faith", "Purpose"}, []string{"希望", "信念", "目標"}, "", ""},
	{"The Moon", "月亮", []string{"Illusion", "Fear", "Subconscious"}, []string{"幻象", "恐懼", "潛意識"}, "", ""},
	{"The Sun", "太陽", []string{"Positivity", "Fun", "Warmth"}, []string{"積極", "樂趣", "溫暖"}, "", ""},
	{"Judgement", "審判", []string{"Judgement", "Rebirth", "Inner Calling"}, []string{"審判", "重生", "內在召喚"}, "", ""},
	{"The World", "世界", []string{"Completion", "Integration", "Accomplishment"}, []string{"完成", "整合", "成就"}, "", ""},
}

var suits = []entry{
	{"Wands", "權杖", []string{"Action", "Creativity", "Passion"}, []string{"行動", "創造力", "熱情"}, "", ""},
	{"Cups", "聖杯", []string{"Emotion", "Relationships", "Intuition"}, []string{"情感", "關係", "直覺"}, "", ""},
	{"Swords", "寶劍", []string{"Intellect", "Communication", "Conflict"}, []string{"智力", "溝通", "衝突"}, "", ""},
	{"Pentacles", "錢幣", []string{"Material", "Wealth", "Work"}, []string{"物質", "財富", "工作"}, "", ""},
}

var ranks = []entry{
	{"Ace", "一", []string{"New Beginning", "Potential"}, []string{"新開始", "潛力"}, "", ""},
	{"2", "二", []string{"Balance", "Partnership"}, []string{"平衡", "夥伴關係"}, "", ""},
	{"3", "三", []string{"Expansion", "Collaboration"}, []string{"擴張", "合作"}, "", ""},
	{"4", "四", []string{"Structure", "Stability"}, []string{"結構", "穩定"}, "", ""},
	{"5", "五", []string{"Conflict", "Loss"}, []string{"衝突", "損失"}, "", ""},
	{"6", "六", []string{"Harmony", "Generosity"}, []string{"和諧", "慷慨"}, "", ""},
	{"7", "七", []string{"Assessment", "Perseverance"}, []string{"評估", "堅持"}, "", ""},
	{"8", "八", []string{"Mastery", "Action"}, []string{"精通", "行動"}, "", ""},
	{"9", "九", []string{"Fruition", "Attainment"}, []string{"成果", "成就"}, "", ""},
	{"10", "十", []string{"Completion", "End of Cycle"}, []string{"完成", "週期結束"}, "", ""},
	{"Page", "侍衛", []string{"Messenger", "Curiosity"}, []string{"信使", "好奇心"}, "", ""},
	{"Knight", "騎士", []string{"Action", "Drive"}, []string{"行動", "驅動力"}, "", ""},
	{"Queen", "王后", []string{"Nurturing", "Influence"}, []string{"滋養", "影響力"}, "", ""},
	{"King", "國王", []string{"Authority", "Mastery"}, []string{"權威", "掌控"}, "", ""},
}

var lenormand = []entry{
	{"Rider", "騎士", []string{"News", "Speed"}, []string{"消息", "速度"}, "News coming soon.", "消息即將到來。"},
	{"Clover", "幸運草", []string{"Luck", "Small joy"}, []string{"幸運", "小確幸"}, "A stroke of luck.", "一陣幸運。"},
	{"Ship", "船", []string{"Travel", "Distance"}, []string{"旅行", "距離"}, "Travel.", "旅行。"},
	{"House", "房子", []string{"Home", "Stability"}, []string{"家庭", "穩定"}, "Domestic life.", "家庭生活。"},
	{"Tree", "樹", []string{"Health", "Growth"}, []string{"健康", "成長"}, "Health and roots.", "健康與根基。"},
	{"Clouds", "雲", []string{"Confusion", "Doubts"}, []string{"困惑", "懷疑"}, "Confusion ahead.", "前方的困惑。"},
	{"Snake", "蛇", []string{"Betrayal", "Complication"}, []string{"背叛", "複雜"}, "Watch out for betrayal.", "小心背叛。"},
	{"Coffin", "棺材", []string{"Ending", "Grief"}, []string{"結束", "悲傷"}, "An ending.", "一個結束。"},
	{"Bouquet", "花束", []string{"Gift", "Appreciation"}, []string{"禮物", "感激"}, "A gift.", "一份禮物。"},
	{"Scythe", "鐮刀", []string{"Danger", "Sudden"}, []string{"危險", "突然"}, "Sudden cut.", "突然的切斷。"},
	{"Whip", "鞭子", []string{"Conflict", "Repetition"}, []string{"衝突", "重複"}, "Conflict.", "衝突。"},
	{"Birds", "鳥", []string{"Communication", "Gossip"}, []string{"溝通", "八卦"}, "Talk and gossip.", "談話與八卦。"},
	{"Child", "小孩", []string{"New", "Innocent"}, []string{"新事物", "純真"}, "New beginning.", "新的開始。"},
	{"Fox", "狐狸", []string{"Work", "Cunning"}, []string{"工作", "狡猾"}, "Work or cunning.", "工作或狡猾。"},
	{"Bear", "熊", []string{"Power", "Protection"}, []string{"權力", "保護"}, "Power.", "權力。"},
	{"Stars", "星星", []string{"Hope", "Clarity"}, []string{"希望", "清晰"}, "Hope.", "希望。"},
	{"Stork", "鸛鳥", []string{"Change", "Movement"}, []string{"改變", "移動"}, "Change.", "改變。"},
	{"Dog", "狗", []string{"Friend", "Loyalty"}, []string{"朋友", "忠誠"}, "Loyalty.", "忠誠。"},
	{"Tower", "塔", []string{"Authority", "Isolation"}, []string{"權威", "孤立"}, "Authority.", "權威。"},
	{"Garden", "花園", []string{"Public", "Society"}, []string{"公眾", "社交"}, "Social life.", "社交生活。"},
	{"Mountain", "山", []string{"Obstacle", "Delay"}, []string{"障礙", "延遲"}, "Blockages.", "障礙。"},
	{"Crossroad", "路口", []string{"Choice", "Options"}, []string{"選擇", "選項"}, "Decisions.", "決定。"},
	{"Mice", "老鼠", []string{"Loss", "Stress"}, []string{"損失", "壓力"}, "Stress.", "壓力。"},
	{"Heart", "愛心", []string{"Love", "Passion"}, []string{"愛", "熱情"}, "Love.", "愛。"},
	{"Ring", "戒指", []string{"Commitment", "Contract"}, []string{"承諾", "合約"}, "Commitment.", "承諾。"},
	{"Book", "書", []string{"Secret", "Knowledge"}, []string{"秘密", "知識"}, "Secrets.", "秘密。"},
	{"Letter", "信", []string{"Message", "Document"}, []string{"訊息", "文件"}, "Written news.", "書面消息。"},
	{"Man", "男人", []string{"Male", "Masculine"}, []string{"男性", "陽性"}, "Male figure.", "男性人物。"},
	{"Woman", "女人", []string{"Female", "Feminine"}, []string{"女性", "陰性"}, "Female figure.", "女性人物。"},
	{"Lily", "百合", []string{"Wisdom", "Peace"}, []string{"智慧", "和平"}, "Peace.", "和平。"},
	{"Sun", "太陽", []string{"Success", "Energy"}, []string{"成功", "能量"}, "Success.", "成功。"},
	{"Moon", "月亮", []string{"Emotion", "Recognition"}, []string{"情感", "認可"}, "Emotions.", "情感。"},
	{"Key", "鑰匙", []string{"Solution", "Destiny"}, []string{"解決方案", "命運"}, "Solution.", "解決方案。"},
	{"Fish", "魚", []string{"Money", "Flow"}, []string{"金錢", "流動"}, "Abundance.", "豐盛。"},
	{"Anchor", "錨", []string{"Stability", "Goal"}, []string{"穩定", "目標"}, "Stability.", "穩定。"},
	{"Cross", "十字架", []string{"Burden", "Faith"}, []string{"負擔", "信仰"}, "Burden.", "負擔。"},
}

// Card id bases
const (
	minorArcanaBase = 100
	lenormandBase   = 200
)

// tarotCards builds the 78 card tarot dataset
func tarotCards() []card.Card {
	cards := make([]card.Card, 0, len(majorArcana)+len(suits)*len(ranks))

	for i, m := range majorArcana {
		cards = append(cards, card.Card{
			ID:       i,
			Name:     m.en,
			Names:    map[card.Locale]string{card.LocaleEN: m.en, card.LocaleZhTW: m.zh},
			Keywords: map[card.Locale][]string{card.LocaleEN: m.kwEN, card.LocaleZhTW: m.kwZH},
			Upright: map[card.Locale]string{
				card.LocaleEN:   fmt.Sprintf("The %s represents a significant soul lesson. In the upright position, it suggests that the energy of %s is flowing freely.", m.en, strings.ToLower(m.kwEN[0])),
				card.LocaleZhTW: fmt.Sprintf("%s代表著重要的靈魂課題。在正位時，它暗示著%s的能量正在自由流動。", m.zh, m.kwZH[0]),
			},
			Reversed: map[card.Locale]string{
				card.LocaleEN:   fmt.Sprintf("Reversed, The %s suggests internalizing this energy. You might be resisting the lesson of %s.", m.en, strings.ToLower(m.kwEN[1])),
				card.LocaleZhTW: fmt.Sprintf("逆位的%s建議將這股能量內化。你可能正在抗拒%s的課題。", m.zh, m.kwZH[1]),
			},
		})
	}

	for s, suit := range suits {
		for r, rank := range ranks {
			nameEN := fmt.Sprintf("%s of %s", rank.en, suit.en)
			cards = append(cards, card.Card{
				ID:    minorArcanaBase + s*len(ranks) + r,
				Name:  nameEN,
				Names: map[card.Locale]string{card.LocaleEN: nameEN, card.LocaleZhTW: suit.zh + rank.zh},
				Keywords: map[card.Locale][]string{
					card.LocaleEN:   concat(suit.kwEN, rank.kwEN),
					card.LocaleZhTW: concat(suit.kwZH, rank.kwZH),
				},
				Upright: map[card.Locale]string{
					card.LocaleEN:   fmt.Sprintf("In the element of %s, the %s brings a message of %s.", suit.en, rank.en, strings.ToLower(rank.kwEN[0])),
					card.LocaleZhTW: fmt.Sprintf("在%s的元素中，這張牌帶來了%s的訊息。", suit.zh, rank.kwZH[0]),
				},
				Reversed: map[card.Locale]string{
					card.LocaleEN:   fmt.Sprintf("Reversed, the energy of %s may be blocked. Watch out for issues regarding %s.", suit.en, strings.ToLower(rank.kwEN[1])),
					card.LocaleZhTW: fmt.Sprintf("逆位時，%s的能量可能受阻。請留意關於%s的問題。", suit.zh, rank.kwZH[1]),
				},
			})
		}
	}

	return cards
}

// lenormandCards builds the 36 card upright-only oracle dataset
func lenormandCards() []card.Card {
	cards := make([]card.Card, 0, len(lenormand))
	for i, l := range lenormand {
		cards = append(cards, card.Card{
			ID:       lenormandBase + i,
			Name:     l.en,
			Names:    map[card.Locale]string{card.LocaleEN: l.en, card.LocaleZhTW: l.zh},
			Keywords: map[card.Locale][]string{card.LocaleEN: l.kwEN, card.LocaleZhTW: l.kwZH},
			Upright:  map[card.Locale]string{card.LocaleEN: l.detailEN, card.LocaleZhTW: l.detailZH},
			Reversed: map[card.Locale]string{},
		})
	}
	return cards
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
