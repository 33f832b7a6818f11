package structure

import "strings"

var elements = strings.Fields(`H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr Mn Fe Co Ni Cu Zn
Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs Ba La Ce Pr Nd Pm Sm Eu Gd
Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn Fr Ra Ac Th Pa U Np Pu Am Cm Bk Cf
Es Fm Md No Lr`)

var atomicNumbers = func() map[string]int {
	ret := make(map[string]int, len(elements))
	for i, symbol := range elements {
		ret[symbol] = i + 1
	}
	return ret
}()

// AtomicNumber returns atomic number of an element symbol
func AtomicNumber(symbol string) (int, bool) {
	z, ok := atomicNumbers[symbol]
	return z, ok
}

// Symbol returns element symbol for an atomic number
func Symbol(z int) (string, bool) {
	if z < 1 || z > len(elements) {
		return "", false
	}
	return elements[z-1], true
}
