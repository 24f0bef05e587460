package combat

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/vnbattle/internal/game/condition"
	"github.com/cory-johannsen/vnbattle/internal/game/skill"
)

// canAct reports whether c has the resources to perform a and no status
// restricts it. It never mutates state.
func (s *Session) canAct(c *Combatant, a Action) bool {
	if c == nil || a == nil {
		return false
	}
	if condition.IsActionRestricted(c.Conditions, a.Kind().String()) {
		return false
	}
	switch a := a.(type) {
	case Attack:
		return true
	case Defend:
		return c.DefendCooldown == 0
	case Flee:
		return c.Kind == KindPlayer
	case UseItem:
		if _, ok := s.items.Item(a.ItemID); !ok {
			return false
		}
		return c.Backpack.Quantity(a.ItemID) > 0
	case UseSkill:
		if !c.HasSkill(a.SkillID) {
			return false
		}
		def, ok := s.skills.Get(a.SkillID)
		return ok && def.ManaCost <= c.Mana
	default:
		return false
	}
}

// resolve applies a to actor and target. Preconditions were checked by canAct.
func (s *Session) resolve(actor, target *Combatant, a Action) ActionResult {
	r := ActionResult{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Actor:     actor.Kind,
		Action:    a.Kind(),
	}
	switch a := a.(type) {
	case Attack:
		s.resolveAttack(actor, target, a, &r)
	case Defend:
		actor.defendBonus = s.rules.DefendACBonus
		actor.defendRound = s.round
		actor.DefendCooldown = s.rules.DefendCooldown
		r.DefendBonus = actor.defendBonus
	case Flee:
		s.resolveFlee(&r)
	case UseItem:
		s.resolveItem(actor, target, a.ItemID, &r)
	case UseSkill:
		s.resolveSkill(actor, target, a.SkillID, &r)
	}
	r.ActorHP, r.ActorMana = actor.HP, actor.Mana
	r.TargetHP, r.TargetMana = target.HP, target.Mana
	s.logger.Debug("action resolved",
		zap.String("actor", actor.ID),
		zap.Stringer("action", r.Action),
		zap.Stringer("outcome", r.Outcome),
		zap.Int("damage", r.Damage),
		zap.Int("round", s.round),
	)
	return r
}

func (s *Session) resolveAttack(attacker, defender *Combatant, a Attack, r *ActionResult) {
	mode := condition.RollMode(attacker.Conditions)
	check := s.roller.Check(mode)
	r.Check = &check
	r.AttackTotal = check.Value + attacker.AttackBonus + condition.AttackBonus(attacker.Conditions)
	r.TargetAC = defender.EffectiveAC()
	r.Outcome = OutcomeFor(check.Value, r.AttackTotal, r.TargetAC)

	multiplier := 1.0
	if a.QTE != nil {
		zone := a.QTE.Zone
		if zone == nil {
			zone = s.pendingQTE
		}
		if zone != nil {
			r.QTETier = zone.Classify(a.QTE.Position)
			multiplier = r.QTETier.Multiplier()
		}
	}
	if !r.Outcome.Landed() {
		return
	}

	roll := s.roller.RollDamageMode(attacker.Damage, s.rules.MinDamage, mode)
	r.DamageRoll = &roll
	amount := roll.Total
	if r.Outcome == Crit {
		amount *= s.rules.CritMultiplier
	}
	if multiplier != 1 {
		amount = max(int(math.Round(float64(amount)*multiplier)), s.rules.MinDamage)
	}
	s.landHit(defender, amount, r)
}

// landHit gates damage through the barrier before reducing HP; a landed hit
// consumes its stacks regardless of how much it carried.
func (s *Session) landHit(target *Combatant, amount int, r *ActionResult) {
	abs := target.Barrier.Absorb(amount)
	r.Absorbed = abs.Absorbed
	r.BarrierConsumed = abs.Removed
	r.BarrierBroken = abs.Broken
	r.Damage = target.ApplyDamage(abs.Taken)
}

func (s *Session) resolveFlee(r *ActionResult) {
	check := s.roller.RollD20()
	r.Check = &check
	r.AttackTotal = check.Value + s.rules.FleeBonus
	r.TargetAC = s.rules.FleeDC
	switch {
	case check.IsCrit:
		r.Fled = true
	case check.IsFumble:
		r.Fled = false
	default:
		r.Fled = r.AttackTotal >= s.rules.FleeDC
	}
}

func (s *Session) resolveItem(user, target *Combatant, id string, r *ActionResult) {
	def, _ := s.items.Item(id)
	if err := user.Backpack.Consume(id); err != nil {
		// canAct guarantees stock; reaching here means the backpack changed underneath us.
		s.logger.Error("consuming item", zap.String("item", id), zap.Error(err))
		return
	}
	r.ItemID = id
	r.Healed = user.Heal(def.Heal)
	r.ManaRestored = user.RestoreMana(def.Mana)
	r.BarrierRestored = user.Barrier.Restore(def.Barrier)
	for _, st := range def.Cure {
		if user.Conditions.Has(st) {
			user.Conditions.Remove(st)
			r.Cured = append(r.Cured, st)
		}
	}
	if def.Damage != "" {
		roll := s.roller.RollDamageDetailed(def.Damage, s.rules.MinDamage)
		r.DamageRoll = &roll
		s.landHit(target, roll.Total, r)
	}
}

func (s *Session) resolveSkill(user, target *Combatant, id string, r *ActionResult) {
	def, _ := s.skills.Get(id)
	user.SpendMana(def.ManaCost)
	r.SkillID = id
	r.ManaSpent = def.ManaCost

	recipient := user
	if def.Target == skill.TargetEnemy {
		recipient = target
	}
	if def.Damage != "" && def.Offensive() {
		roll := s.roller.RollDamageDetailed(def.Damage, s.rules.MinDamage)
		r.DamageRoll = &roll
		s.landHit(target, roll.Total, r)
	}
	if def.Status != nil {
		if st, ok := s.statuses.Get(def.Status.ID); ok {
			if err := recipient.Conditions.Apply(st, max(def.Status.Stacks, 1), statusDuration(def.Status.Duration)); err == nil {
				r.StatusApplied = st.ID
			}
		} else {
			s.logger.Warn("skill references unknown status", zap.String("skill", id), zap.String("status", def.Status.ID))
		}
	}
	r.Healed = user.Heal(def.Heal)
	r.BarrierRestored = user.Barrier.Restore(def.Barrier)
}

func statusDuration(d int) int {
	if d <= 0 {
		return -1
	}
	return d
}
