// Package rail talks to the Israel Railways public endpoints: the schedule
// planner and the seat reservation handler.
package rail

import "sort"

// Station describes one railway station. ReservationID is the separate
// numeric id the reservation endpoint expects, unrelated to Code.
type Station struct {
	Code          int
	NameHE        string
	NameEN        string
	ReservationID string
}

// stations maps the planner station code to its descriptor.
var stations = map[int]Station{
	300: {Code: 300, NameHE: "פאתי מודיעין", NameEN: "Pa'ate Modi'in", ReservationID: "48"},
	400: {Code: 400, NameHE: "מודיעין מרכז", NameEN: "Modi'in-Center M\"C", ReservationID: "49"},
	680: {Code: 680, NameHE: "ירושלים - יצחק נבון", NameEN: "Jerusalem - Yitzhak Navon", ReservationID: "69"},
	700: {Code: 700, NameHE: "קריית חיים", NameEN: "Kiryat Hayyim", ReservationID: "11"},
	1220: {Code: 1220, NameHE: "מרכזית המפרץ", NameEN: "HaMifrats Central Station", ReservationID: "38"},
	1240: {Code: 1240, NameHE: "יקנעם כפר-יהושע", NameEN: "YOKNE'AM-KFAR YEHOSHU'A", ReservationID: "60"},
	1250: {Code: 1250, NameHE: "מגדל-העמק כפר-ברוך", NameEN: "MIGDAL HA'EMEK-KFAR BARUKH", ReservationID: "61"},
	1260: {Code: 1260, NameHE: "עפולה ר.איתן", NameEN: "Afula R.Eitan", ReservationID: "62"},
	1280: {Code: 1280, NameHE: "בית שאן", NameEN: "BEIT SHE'AN", ReservationID: "63"},
	1300: {Code: 1300, NameHE: "חוצות המפרץ", NameEN: "Hutsot HaMifrats", ReservationID: "10"},
	1400: {Code: 1400, NameHE: "קריית מוצקין", NameEN: "Kiryat Motzkin", ReservationID: "12"},
	1500: {Code: 1500, NameHE: "עכו", NameEN: "Acre", ReservationID: "13"},
	1600: {Code: 1600, NameHE: "נהרייה", NameEN: "Nahariyya", ReservationID: "16"},
	1820: {Code: 1820, NameHE: "אחיהוד", NameEN: "Ahihud", ReservationID: "64"},
	1840: {Code: 1840, NameHE: "כרמיאל", NameEN: "Karmiel", ReservationID: "65"},
	2100: {Code: 2100, NameHE: "חיפה מרכז השמונה", NameEN: "Haifa Center", ReservationID: "25"},
	2200: {Code: 2200, NameHE: "חיפה בת-גלים", NameEN: "Haifa-Bat Gallim", ReservationID: "9"},
	2300: {Code: 2300, NameHE: "חיפה בחוף-הכרמל", NameEN: "Haifa H.HaKarmell", ReservationID: "14"},
	2500: {Code: 2500, NameHE: "עתלית", NameEN: "Atlit", ReservationID: "8"},
	2800: {Code: 2800, NameHE: "בנימינה", NameEN: "Binyamina", ReservationID: "6"},
	2820: {Code: 2820, NameHE: "קיסריה פרדס-חנה", NameEN: "Caesarea P,h", ReservationID: "7"},
	2940: {Code: 2940, NameHE: "רעננה מערב", NameEN: "Ra'anana West", ReservationID: "66"},
	2960: {Code: 2960, NameHE: "רעננה דרום", NameEN: "Ra'anana South", ReservationID: "67"},
	3100: {Code: 3100, NameHE: "חדרה מערב", NameEN: "Hadera- West", ReservationID: "5"},
	3300: {Code: 3300, NameHE: "נתניה", NameEN: "Netanya", ReservationID: "4"},
	3310: {Code: 3310, NameHE: "נתניה ספיר", NameEN: "NETANYA-SAPIR", ReservationID: "59"},
	3400: {Code: 3400, NameHE: "בית-יהושע", NameEN: "Bet Yehoshu''a", ReservationID: "3"},
	3500: {Code: 3500, NameHE: "הרצלייה", NameEN: "Hertsliyya", ReservationID: "2"},
	3600: {Code: 3600, NameHE: "ת\"א אוניברסיטה", NameEN: "Tel Aviv University T\"U", ReservationID: "36"},
	3700: {Code: 3700, NameHE: "ת\"א סבידור מרכז", NameEN: "Tel Aviv-Center", ReservationID: "1"},
	4100: {Code: 4100, NameHE: "בני ברק", NameEN: "Bne Brak", ReservationID: "35"},
	4170: {Code: 4170, NameHE: "קריית אריה", NameEN: "P.T. Kiryat Arye", ReservationID: "45"},
	4250: {Code: 4250, NameHE: "פתח-תקווה סגולה", NameEN: "Petah Tikva-Sgulla", ReservationID: "34"},
	4600: {Code: 4600, NameHE: "ת\"א השלום", NameEN: "Tel Aviv - HaShalom", ReservationID: "23"},
	4640: {Code: 4640, NameHE: "צומת חולון", NameEN: "Holon Junction", ReservationID: "50"},
	4660: {Code: 4660, NameHE: "חולון וולפסון", NameEN: "Holon Wolfson", ReservationID: "51"},
	4680: {Code: 4680, NameHE: "בת-ים יוספטל", NameEN: "Bat Yam-Yoseftal", ReservationID: "52"},
	4690: {Code: 4690, NameHE: "בת-ים קוממיות", NameEN: "Bat.Y-Komemiyyut", ReservationID: "53"},
	4800: {Code: 4800, NameHE: "כפר חב\"ד", NameEN: "Kfar Habbad", ReservationID: "22"},
	4900: {Code: 4900, NameHE: "ת\"א ההגנה", NameEN: "Tel Aviv HaHagana", ReservationID: "39"},
	5000: {Code: 5000, NameHE: "לוד", NameEN: "Lod", ReservationID: "20"},
	5010: {Code: 5010, NameHE: "רמלה", NameEN: "Ramla", ReservationID: "26"},
	5150: {Code: 5150, NameHE: "לוד גני-אביב", NameEN: "Lod-Ganne Aviv", ReservationID: "46"},
	5200: {Code: 5200, NameHE: "רחובות", NameEN: "Rehovot", ReservationID: "29"},
	5300: {Code: 5300, NameHE: "באר-יעקב", NameEN: "Be''er Ya''akov", ReservationID: "28"},
	5410: {Code: 5410, NameHE: "יבנה מזרח", NameEN: "Yavne East", ReservationID: "30"},
	5800: {Code: 5800, NameHE: "אשדוד עד-הלום", NameEN: "Ashdod- Ad Halom", ReservationID: "32"},
	5900: {Code: 5900, NameHE: "אשקלון", NameEN: "Ashkelon", ReservationID: "42"},
	6150: {Code: 6150, NameHE: "קרית מלאכי - יואב", NameEN: "Kiryat Malakhi  Yoav", ReservationID: "68"},
	6300: {Code: 6300, NameHE: "בית-שמש", NameEN: "Bet Shemesh", ReservationID: "18"},
	6500: {Code: 6500, NameHE: "ירושלים - גן החיות התנכי", NameEN: "Jerusalem-Biblical Zoo", ReservationID: "17"},
	6700: {Code: 6700, NameHE: "ירושלים - מלחה", NameEN: "Jerusalem - Malha", ReservationID: "41"},
	6900: {Code: 6900, NameHE: "מזכרת בתיה", NameEN: "Mazkeret Batya", ReservationID: "70"},
	7000: {Code: 7000, NameHE: "קריית-גת", NameEN: "Kiryat Gat", ReservationID: "19"},
	7300: {Code: 7300, NameHE: "באר-שבע צפון", NameEN: "B.S. North", ReservationID: "21"},
	7320: {Code: 7320, NameHE: "באר-שבע מרכז", NameEN: "Beer Sheva- Center", ReservationID: "37"},
	7500: {Code: 7500, NameHE: "דימונה", NameEN: "Dimona", ReservationID: "43"},
	8550: {Code: 8550, NameHE: "להבים רהט", NameEN: "Lehavim-Rahat", ReservationID: "47"},
	8600: {Code: 8600, NameHE: "נתב\"ג", NameEN: "Ben Gurion Airport", ReservationID: "40"},
	8700: {Code: 8700, NameHE: "כפר-סבא נורדאו", NameEN: "Kfar Sava-Nordau", ReservationID: "15"},
	8800: {Code: 8800, NameHE: "ראש-העין צפון", NameEN: "Rosh Ha''ayin North", ReservationID: "27"},
	9000: {Code: 9000, NameHE: "יבנה מערב", NameEN: "Yavne West", ReservationID: "55"},
	9100: {Code: 9100, NameHE: "ראשל\"צ הראשונים", NameEN: "R.HaRishonim", ReservationID: "31"},
	9200: {Code: 9200, NameHE: "הוד-השרון סוקולוב", NameEN: "H.Sharon Sokolov", ReservationID: "44"},
	9600: {Code: 9600, NameHE: "שדרות", NameEN: "Sderot", ReservationID: "56"},
	9650: {Code: 9650, NameHE: "נתיבות", NameEN: "Netivot", ReservationID: "57"},
	9700: {Code: 9700, NameHE: "אופקים", NameEN: "Ofakim", ReservationID: "58"},
	9800: {Code: 9800, NameHE: "ראשון לציון-משה דיין", NameEN: "R.Moshe-Dayan", ReservationID: "54"},
}

// StationNames returns all Hebrew display names sorted for keyboard rendering.
func StationNames() []string {
	names := make([]string, 0, len(stations))
	for _, st := range stations {
		names = append(names, st.NameHE)
	}
	sort.Strings(names)
	return names
}

// StationNameToID resolves a Hebrew display name to the planner station code.
func StationNameToID(name string) (int, bool) {
	for code, st := range stations {
		if st.NameHE == name {
			return code, true
		}
	}
	return 0, false
}

// StationIDToName resolves a planner station code to its Hebrew display name.
func StationIDToName(id int) (string, bool) {
	st, ok := stations[id]
	if !ok {
		return "", false
	}
	return st.NameHE, true
}

// ReservationStationID returns the id the reservation endpoint uses for a station.
func ReservationStationID(id int) (string, bool) {
	st, ok := stations[id]
	if !ok {
		return "", false
	}
	return st.ReservationID, true
}
