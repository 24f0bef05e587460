package combat

// EnemyPolicy picks the enemy's action for its turn. The session validates
// the choice; anything the enemy cannot do falls back to Attack.
type EnemyPolicy interface {
	ChooseAction(view BattleView) Action
}

// BattleView is the read-only state a policy decides from.
type BattleView struct {
	Round  int
	Enemy  CombatantView
	Player CombatantView
}

// PolicyFunc adapts a function to EnemyPolicy.
type PolicyFunc func(BattleView) Action

// ChooseAction calls f.
func (f PolicyFunc) ChooseAction(v BattleView) Action { return f(v) }

// AlwaysAttack is the default enemy behaviour.
type AlwaysAttack struct{}

// ChooseAction always returns Attack.
func (AlwaysAttack) ChooseAction(BattleView) Action { return Attack{} }
