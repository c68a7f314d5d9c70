package workload

import (
	"sync"

	"codeberg.org/mutker/threadstone/internal/clock"
)

const (
	dhrystoneDefaultRuns = 1_000_000
	dhrystoneArrayLen    = 50
)

// enumeration mirrors the Dhrystone identifier type.
type enumeration int

const (
	ident1 enumeration = iota
	ident2
	ident3
	ident4
	ident5
)

type record struct {
	ptrComp  *record
	discr    enumeration
	enumComp enumeration
	intComp  int
	strComp  string
}

// Dhrystone state is package-global, as in the reference program. dhryMu
// serializes runs so concurrent callers never interleave on it.
var (
	dhryMu sync.Mutex

	ptrGlob     *record
	nextPtrGlob *record
	intGlob     int
	boolGlob    bool
	ch1Glob     byte
	ch2Glob     byte
	arr1Glob    [dhrystoneArrayLen]int
	arr2Glob    [dhrystoneArrayLen][dhrystoneArrayLen]int
)

type dhrystone struct{}

// NewDhrystone returns the integer kernel. Its throughput unit is
// Dhrystone loops per second.
func NewDhrystone() Kernel {
	return dhrystone{}
}

func (dhrystone) ID() ID                { return Dhrystone }
func (dhrystone) Unit() string          { return "dhrystones/s" }
func (dhrystone) DefaultBudget() uint64 { return dhrystoneDefaultRuns }

func (dhrystone) Run(budget uint64) float64 {
	dhryMu.Lock()
	defer dhryMu.Unlock()

	start := clock.Now()
	runs := dhryRun(budget)
	elapsed := clock.Now() - start

	return perSecond(float64(runs), elapsed)
}

func dhryReset() {
	nextPtrGlob = &record{}
	ptrGlob = &record{
		ptrComp:  nextPtrGlob,
		discr:    ident1,
		enumComp: ident3,
		intComp:  40,
		strComp:  "DHRYSTONE PROGRAM, SOME STRING",
	}
	intGlob = 0
	boolGlob = false
	ch1Glob = 0
	ch2Glob = 0
	arr1Glob = [dhrystoneArrayLen]int{}
	arr2Glob = [dhrystoneArrayLen][dhrystoneArrayLen]int{}
	arr2Glob[8][7] = 10
}

// dhryRun executes the main loop and returns the number of runs done.
// Callers must hold dhryMu.
func dhryRun(runs uint64) uint64 {
	dhryReset()

	str1Loc := "DHRYSTONE PROGRAM, 1'ST STRING"

	var int1Loc, int2Loc, int3Loc int
	var str2Loc string
	var enumLoc enumeration

	for run := uint64(1); run <= runs; run++ {
		proc5()
		proc4()
		int1Loc = 2
		int2Loc = 3
		str2Loc = "DHRYSTONE PROGRAM, 2'ND STRING"
		enumLoc = ident2
		boolGlob = !func2(str1Loc, str2Loc)
		for int1Loc < int2Loc {
			int3Loc = 5*int1Loc - int2Loc
			proc7(int1Loc, int2Loc, &int3Loc)
			int1Loc++
		}
		proc8(&arr1Glob, &arr2Glob, int1Loc, int3Loc)
		proc1(ptrGlob)
		for ch := byte('A'); ch <= ch2Glob; ch++ {
			if enumLoc == func1(ch, 'C') {
				proc6(ident1, &enumLoc)
				str2Loc = "DHRYSTONE PROGRAM, 3'RD STRING"
				int2Loc = int(run)
				intGlob = int(run)
			}
		}
		int2Loc *= int1Loc
		int1Loc = int2Loc / int3Loc
		int2Loc = 7*(int2Loc-int3Loc) - int1Loc
		proc2(&int1Loc)
	}
	_ = str2Loc

	return runs
}

func proc1(ptrValPar *record) {
	next := ptrValPar.ptrComp
	*ptrValPar.ptrComp = *ptrGlob
	ptrValPar.intComp = 5
	next.intComp = ptrValPar.intComp
	next.ptrComp = ptrValPar.ptrComp
	proc3(&next.ptrComp)
	if next.discr == ident1 {
		next.intComp = 6
		proc6(ptrValPar.enumComp, &next.enumComp)
		next.ptrComp = ptrGlob.ptrComp
		proc7(next.intComp, 10, &next.intComp)
	} else {
		*ptrValPar = *ptrValPar.ptrComp
	}
}

func proc2(intParRef *int) {
	intLoc := *intParRef + 10
	var enumLoc enumeration
	for {
		if ch1Glob == 'A' {
			intLoc--
			*intParRef = intLoc - intGlob
			enumLoc = ident1
		}
		if enumLoc == ident1 {
			return
		}
	}
}

func proc3(ptrRefPar **record) {
	if ptrGlob != nil {
		*ptrRefPar = ptrGlob.ptrComp
	}
	proc7(10, intGlob, &ptrGlob.intComp)
}

func proc4() {
	boolLoc := ch1Glob == 'A'
	boolGlob = boolLoc || boolGlob
	ch2Glob = 'B'
}

func proc5() {
	ch1Glob = 'A'
	boolGlob = false
}

func proc6(enumValPar enumeration, enumRefPar *enumeration) {
	*enumRefPar = enumValPar
	if !func3(enumValPar) {
		*enumRefPar = ident4
	}
	switch enumValPar {
	case ident1:
		*enumRefPar = ident1
	case ident2:
		if intGlob > 100 {
			*enumRefPar = ident1
		} else {
			*enumRefPar = ident4
		}
	case ident3:
		*enumRefPar = ident2
	case ident4:
	case ident5:
		*enumRefPar = ident3
	}
}

func proc7(int1ParVal, int2ParVal int, intParRef *int) {
	intLoc := int1ParVal + 2
	*intParRef = int2ParVal + intLoc
}

func proc8(arr1 *[dhrystoneArrayLen]int, arr2 *[dhrystoneArrayLen][dhrystoneArrayLen]int, int1ParVal, int2ParVal int) {
	intLoc := int1ParVal + 5
	arr1[intLoc] = int2ParVal
	arr1[intLoc+1] = arr1[intLoc]
	arr1[intLoc+30] = intLoc
	for i := intLoc; i <= intLoc+1; i++ {
		arr2[intLoc][i] = intLoc
	}
	arr2[intLoc][intLoc-1]++
	arr2[intLoc+20][intLoc] = arr1[intLoc]
	intGlob = 5
}

func func1(ch1ParVal, ch2ParVal byte) enumeration {
	ch1Loc := ch1ParVal
	ch2Loc := ch1Loc
	if ch2Loc != ch2ParVal {
		return ident1
	}
	ch1Glob = ch1Loc
	return ident2
}

func func2(str1ParRef, str2ParRef string) bool {
	intLoc := 2
	var chLoc byte
	for intLoc <= 2 {
		if func1(str1ParRef[intLoc], str2ParRef[intLoc+1]) == ident1 {
			chLoc = 'A'
			intLoc++
		}
	}
	if chLoc >= 'W' && chLoc < 'Z' {
		intLoc = 7
	}
	if chLoc == 'R' {
		return true
	}
	if str1ParRef > str2ParRef {
		intLoc += 7
		intGlob = intLoc
		return true
	}
	return false
}

func func3(enumParVal enumeration) bool {
	return enumParVal == ident3
}
